package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gojek/heimdall/v7/httpclient"

	"arcana/internal/interfaces"
)

// TonCenter resolves signature statuses against a toncenter-style indexer.
// No retry policy lives here; the purchase workflow owns retries and
// timeouts.
type TonCenter struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

func NewTonCenter(baseURL, apiKey string) *TonCenter {
	client := httpclient.NewClient(httpclient.WithHTTPTimeout(10 * time.Second))
	return &TonCenter{client, baseURL, apiKey}
}

type txByMessageResponse struct {
	Transactions []struct {
		Hash          string `json:"hash"`
		McBlockSeqno  int64  `json:"mc_block_seqno"`
		Description   struct {
			ComputePh struct {
				Success  bool `json:"success"`
				ExitCode int  `json:"exit_code"`
			} `json:"compute_ph"`
		} `json:"description"`
	} `json:"transactions"`
}

type masterchainInfoResponse struct {
	Last struct {
		Seqno int64 `json:"seqno"`
	} `json:"last"`
}

func (tc *TonCenter) GetSignatureStatus(ctx context.Context, signature string) (*interfaces.SignatureStatus, error) {
	var txs txByMessageResponse
	query := url.Values{"msg_hash": {signature}, "direction": {"in"}}
	if err := tc.get(ctx, "/api/v3/transactionsByMessage", query, &txs); err != nil {
		return nil, err
	}

	if len(txs.Transactions) == 0 {
		return &interfaces.SignatureStatus{Found: false}, nil
	}

	tx := txs.Transactions[0]
	status := &interfaces.SignatureStatus{Found: true}
	if !tx.Description.ComputePh.Success {
		status.ExecError = fmt.Sprintf("exit code %d", tx.Description.ComputePh.ExitCode)
		return status, nil
	}

	var info masterchainInfoResponse
	if err := tc.get(ctx, "/api/v3/masterchainInfo", nil, &info); err != nil {
		return nil, err
	}

	status.Confirmations = int(info.Last.Seqno - tx.McBlockSeqno)
	if status.Confirmations < 0 {
		status.Confirmations = 0
	}
	status.Finalized = status.Confirmations >= FinalizedDepth

	return status, nil
}

// FinalizedDepth is how many masterchain blocks past the transaction's block
// we treat as final.
const FinalizedDepth = 3

func (tc *TonCenter) get(ctx context.Context, path string, query url.Values, target interface{}) error {
	u := tc.baseURL + path
	if len(query) > 0 {
		u = u + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if tc.apiKey != "" {
		req.Header.Set("X-Api-Key", tc.apiKey)
	}

	res, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer: %s returned %d", path, res.StatusCode)
	}

	return json.NewDecoder(res.Body).Decode(target)
}
