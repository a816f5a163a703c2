package httphandler

import "net/http"

// DiscoveryHandler serves the SEP-1 discovery document (§4.1, §6.1).
type DiscoveryHandler struct {
	Publisher interface{ Render() []byte }
}

func (h DiscoveryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.Publisher.Render())
}
