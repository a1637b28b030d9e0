package cacheql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/mnohosten/blockcache/pkg/blockcache"
	"github.com/mnohosten/blockcache/pkg/filemgr"
)

// Handler serves GraphQL POST requests against the inspection schema,
// grounded on pkg/graphql/handler.go.
type Handler struct {
	schema graphql.Schema
}

// NewHandler builds a Handler bound to cache and files.
func NewHandler(cache *blockcache.Cache, files *filemgr.Manager) (*Handler, error) {
	schema, err := Schema(cache, files)
	if err != nil {
		return nil, err
	}
	return &Handler{schema: schema}, nil
}

// graphQLRequest is the standard GraphQL-over-HTTP POST body.
type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "cacheql only accepts POST requests", http.StatusMethodNotAllowed)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{{"message": "invalid request body"}},
		})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
