package names

import (
	"bytes"
	"encoding/json"
)

type ResponseKind int

const (
	KindUnrecognized ResponseKind = iota
	// KindNameList is a bare JSON array of strings.
	KindNameList
	// KindNamesObject is an object carrying a "names" array of strings.
	KindNamesObject
)

func (k ResponseKind) String() string {
	switch k {
	case KindNameList:
		return "name_list"
	case KindNamesObject:
		return "names_object"
	default:
		return "unrecognized"
	}
}

// Response is the decoded backend reply. Names is empty unless Kind is one of
// the two recognized shapes.
type Response struct {
	Kind  ResponseKind
	Names []string
}

// DecodeResponse classifies a syntactically valid JSON body. It returns an
// error only when body is not JSON at all.
func DecodeResponse(body []byte) (Response, error) {
	trimmed := bytes.TrimSpace(body)

	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Response{}, err
	}

	switch v := raw.(type) {
	case []any:
		if list, ok := stringList(v); ok {
			return Response{Kind: KindNameList, Names: list}, nil
		}
	case map[string]any:
		if arr, ok := v["names"].([]any); ok {
			if list, ok := stringList(arr); ok {
				return Response{Kind: KindNamesObject, Names: list}, nil
			}
		}
	}
	return Response{Kind: KindUnrecognized, Names: []string{}}, nil
}

func stringList(items []any) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
