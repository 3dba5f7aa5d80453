package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/birr-rates/birrbot/storage"
	"github.com/birr-rates/birrbot/storage/types"
)

var (
	errUnableToFetchRates   = errors.New("unable to fetch rates")
	errUnableToFetchSources = errors.New("unable to fetch sources")

	errInvalidType = errors.New("invalid type")
	errNoRateFound = errors.New("no rate found for pair")
)

// Rates returns every held rate snapshot
func (s *Server) Rates(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListRates(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch rates",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchRates,
		)

		return
	}

	writeJSON(w, http.StatusOK, &RatesResponse{Results: items})
}

// RateForPair returns the freshest snapshot for a currency pair,
// optionally narrowed by source and rate type
func (s *Server) RateForPair(w http.ResponseWriter, r *http.Request) {
	var (
		baseParam   = chi.URLParam(r, "base")
		targetParam = chi.URLParam(r, "target")

		sourceParam = r.URL.Query().Get("source")
		typeParam   = r.URL.Query().Get("type")
	)

	// Parse the base currency
	base, err := parseCurrencySymbol(baseParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the target currency
	target, err := parseCurrencySymbol(targetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the source and rate type (optional)
	source, rateType, err := parseSourceAndType(sourceParam, typeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	q := &types.RateQuery{
		Base:     base,
		Target:   target,
		Source:   source,
		RateType: rateType,
	}

	rate, err := s.storage.LatestRate(r.Context(), q)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, errNoRateFound)

			return
		}

		s.logger.Debug(
			"unable to fetch rate",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchRates,
		)

		return
	}

	writeJSON(w, http.StatusOK, rate)
}

// Sources returns every source with at least one snapshot
func (s *Server) Sources(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListSources(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch sources",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchSources,
		)

		return
	}

	writeJSON(w, http.StatusOK, &SourcesResponse{Results: items})
}

func parseSourceAndType(sourceRaw, typeRaw string) (*types.Source, *types.RateType, error) {
	var src *types.Source

	if v := strings.TrimSpace(sourceRaw); v != "" {
		s := types.Source(v)

		src = &s
	}

	var rt *types.RateType

	if v := strings.TrimSpace(typeRaw); v != "" {
		t := types.RateType(strings.ToUpper(v))

		switch t {
		case types.RateTypeMID, types.RateTypeBUY, types.RateTypeSELL:
			rt = &t
		default:
			return nil, nil, errInvalidType
		}
	}

	return src, rt, nil
}

func parseCurrencySymbol(v string) (types.Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if len(s) < 3 || len(s) > 5 {
		return "", errors.New("invalid currency (must be 3-5 letters)")
	}

	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", errors.New("invalid currency (must be A-Z)")
		}
	}

	return types.Currency(s), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
