package coordinator_test

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sprintertech/intent-engine/coordinator"
	"github.com/stretchr/testify/suite"
)

type APITestSuite struct {
	suite.Suite
}

func TestRunAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) server(responses map[string]string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}))
}

func (s *APITestSuite) Test_FeeTable_AssemblesSnapshot() {
	server := s.server(map[string]string{
		"/v1/protocol-fees": `{
			"collection_fees": [
				{"chain_id": 137, "token_address": "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", "amount": "1000000"}
			],
			"fulfilment_fees": [
				{"chain_id": 137, "token_address": "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", "amount": "3000000"}
			],
			"protocol_fee_bps": 10
		}`,
		"/v1/solver-data": `{
			"routes": [
				{"source_chain_id": 1, "source_token": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "dest_chain_id": 137, "dest_token": "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", "bps": 30}
			]
		}`,
	}, http.StatusOK)
	defer server.Close()

	api := coordinator.NewAPI(server.URL)
	table, err := api.FeeTable(context.Background())

	s.Nil(err)
	s.Equal(int64(10), table.ProtocolFeeBps)

	usdcPolygon := common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	s.Equal(big.NewInt(1000000), table.CollectionFee(137, usdcPolygon))
	s.Equal(big.NewInt(3000000), table.FulfilmentFee(137, usdcPolygon))

	s.Len(table.SolverRoutes, 1)
	s.Equal(uint64(1), table.SolverRoutes[0].SourceChainID)
	s.Equal(int64(30), table.SolverRoutes[0].Bps)
}

func (s *APITestSuite) Test_FeeTable_SkipsMalformedFeeAmounts() {
	server := s.server(map[string]string{
		"/v1/protocol-fees": `{
			"collection_fees": [
				{"chain_id": 137, "token_address": "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", "amount": "abc"}
			],
			"protocol_fee_bps": 10
		}`,
		"/v1/solver-data": `{"routes": []}`,
	}, http.StatusOK)
	defer server.Close()

	api := coordinator.NewAPI(server.URL)
	table, err := api.FeeTable(context.Background())

	s.Nil(err)
	s.Empty(table.CollectionFees)
}

func (s *APITestSuite) Test_FeeTable_PartialFailureFails() {
	server := s.server(map[string]string{
		"/v1/protocol-fees": `{"protocol_fee_bps": 10}`,
	}, http.StatusOK)
	defer server.Close()

	api := coordinator.NewAPI(server.URL)
	_, err := api.FeeTable(context.Background())

	s.NotNil(err)
}

func (s *APITestSuite) Test_PriceOracleData_ReturnsPrices() {
	server := s.server(map[string]string{
		"/v1/price-oracle": `{
			"prices": [
				{"symbol": "ETH", "price_usd": "2543.12"},
				{"symbol": "USDC", "price_usd": "1"}
			]
		}`,
	}, http.StatusOK)
	defer server.Close()

	api := coordinator.NewAPI(server.URL)
	resp, err := api.PriceOracleData(context.Background())

	s.Nil(err)
	s.Len(resp.Prices, 2)
	s.Equal("ETH", resp.Prices[0].Symbol)
	s.Equal("2543.12", resp.Prices[0].PriceUSD.String())
}

func (s *APITestSuite) Test_PriceOracleData_UnexpectedStatusCode() {
	server := s.server(map[string]string{
		"/v1/price-oracle": `{}`,
	}, http.StatusInternalServerError)
	defer server.Close()

	api := coordinator.NewAPI(server.URL)
	_, err := api.PriceOracleData(context.Background())

	s.NotNil(err)
}
