package handlers

import (
	"github.com/rs/zerolog"
	"github.com/suPer8Hu/brands-digger/internal/conversation"
)

type Handler struct {
	Conv *conversation.Controller
	log  zerolog.Logger
}

func NewHandler(conv *conversation.Controller, logger zerolog.Logger) *Handler {
	return &Handler{
		Conv: conv,
		log:  logger.With().Str("component", "api").Logger(),
	}
}
