package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/slushie/slushie-node/crypto/hash/mixhash"
	"github.com/slushie/slushie-node/storage"
	"github.com/slushie/slushie-node/types"
)

// pingHandler answers the health check.
func (a *API) pingHandler(w http.ResponseWriter, _ *http.Request) {
	httpWriteOK(w)
}

// infoHandler returns the pool shape and fill level.
func (a *API) infoHandler(w http.ResponseWriter, _ *http.Request) {
	info := a.ledger.Info()
	httpWriteJSON(w, &info)
}

// rootHandler returns the current accumulator root and leaf count.
func (a *API) rootHandler(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &RootResponse{
		Root:      a.ledger.CurrentRoot().Bytes(),
		LeafCount: a.ledger.LeafCount(),
	})
}

// rootStatusHandler reports whether a root is inside the trust window.
func (a *API) rootStatusHandler(w http.ResponseWriter, r *http.Request) {
	rootBytes, err := types.HexStringToHexBytes(chi.URLParam(r, RootURLParam))
	if err != nil {
		ErrMalformedRoot.WithErr(err).Write(w)
		return
	}
	root, err := mixhash.FromBytes(rootBytes)
	if err != nil {
		ErrMalformedRoot.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &RootStatusResponse{Known: a.ledger.IsKnownRoot(root)})
}

// factsHandler lists recorded facts, optionally limited with ?limit=N.
func (a *API) factsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		var err error
		if limit, err = strconv.Atoi(q); err != nil {
			ErrMalformedBody.WithErr(err).Write(w)
			return
		}
	}
	facts, err := a.storage.Facts(limit)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	if facts == nil {
		facts = []*types.Fact{}
	}
	httpWriteJSON(w, &FactsResponse{Facts: facts})
}

// factByIDHandler returns a single fact by its ID.
func (a *API) factByIDHandler(w http.ResponseWriter, r *http.Request) {
	fact, err := a.storage.FactByID(chi.URLParam(r, FactIDURLParam))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrResourceNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, fact)
}
