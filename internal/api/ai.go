package api

import "net/http"

type suggestRequest struct {
	Prompt string `json:"prompt"`
}

// suggestions is the canned response while the upstream model integration is
// disabled. TODO: wire the real completion call once an API budget exists.
var suggestions = []string{
	"We miss you! Come back and enjoy 10% off your next order.",
	"Big spenders deserve big rewards - check your exclusive offer inside.",
	"It's been a while! Here's something to bring you back.",
}

func (s *Server) handleSuggestMessages(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	_ = decodeJSON(w, r, &req) // prompt is unused while suggestions are canned

	writeJSON(w, http.StatusOK, suggestions)
}
