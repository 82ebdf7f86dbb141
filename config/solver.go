// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	solverConfig "github.com/sprintertech/solver-config/go/config"
)

// GetSolverConfigFromNetwork fetches the shared solver registry that holds
// the token addresses and decimals per chain.
func GetSolverConfigFromNetwork(url string) (solverConfig.SolverConfig, error) {
	sc := solverConfig.SolverConfig{}

	resp, err := http.Get(url) // #nosec
	if err != nil {
		return sc, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sc, fmt.Errorf("unexpected status code: %d, %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return sc, err
	}

	if err := json.Unmarshal(body, &sc); err != nil {
		return sc, err
	}

	return sc, nil
}
