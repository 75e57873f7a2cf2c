package handler

import (
	"net/http"
	"sync"

	app "foodbridge-backend/bootstrap"

	"github.com/rs/zerolog/log"
)

var (
	initOnce sync.Once
	handler  http.Handler
	initErr  error
)

// Handler is the Vercel serverless entry point. All requests are rewritten here.
// The app is built on the first request so a cold start with a bad config answers 503
// instead of crashing the function.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		handler, initErr = app.Handler()
		if initErr != nil {
			log.Error().Err(initErr).Msg("API init failed")
		}
	})
	if initErr != nil {
		http.Error(w, `{"status":"error","error":{"message":"Service unavailable","statusCode":503}}`, http.StatusServiceUnavailable)
		return
	}
	r.RequestURI = r.URL.String()
	handler.ServeHTTP(w, r)
}
