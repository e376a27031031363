package api

import (
	"net/http"
)

// boardHandler serves the live leaderboard page.
type boardHandler struct{}

func newBoardHandler() *boardHandler {
	return &boardHandler{}
}

// HandleBoard handles GET /events/{eventID}/board requests. The page reads
// the event id from its own URL and follows /events/{eventID}/live.
func (h *boardHandler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, boardFS, "board.html")
}
