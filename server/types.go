package server

import "github.com/birr-rates/birrbot/storage/types"

type RatesResponse struct {
	Results []*types.Rate `json:"results"`
}

type SourcesResponse struct {
	Results []types.Source `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
