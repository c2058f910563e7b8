// Package chain looks up finalized transactions on a Solana-style JSON-RPC
// node and extracts their token transfers. Only getTransaction is needed:
// the service verifies inbound transfers, it never submits them.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

var ErrTransactionNotFound = errors.New("transaction not found on chain")

type Client struct {
	RPCURL string
	client *http.Client
}

func NewClient(rpcURL string) *Client {
	return &Client{
		RPCURL: rpcURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Transfer is one token movement inside a transaction. From is the signing
// authority (the payer's wallet); amounts are in the token's base units.
type Transfer struct {
	From   string
	To     string
	Amount uint64
}

type Transaction struct {
	Signature string
	Slot      uint64
	Failed    bool // meta.err was set on chain
	Transfers []Transfer
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type txResult struct {
	Slot uint64 `json:"slot"`
	Meta *struct {
		Err interface{} `json:"err"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			Instructions []instruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type instruction struct {
	Program string `json:"program"`
	Parsed  *struct {
		Type string `json:"type"`
		Info struct {
			Source      string `json:"source"`
			Destination string `json:"destination"`
			Authority   string `json:"authority"`
			Amount      string `json:"amount"`
			TokenAmount *struct {
				Amount string `json:"amount"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// GetTransaction fetches a finalized transaction by signature. A null result
// means the chain has no such transaction (or it is not finalized yet) and is
// reported as ErrTransactionNotFound.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	payload, _ := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getTransaction",
		Params: []interface{}{
			signature,
			map[string]interface{}{
				"encoding":                       "jsonParsed",
				"commitment":                     "finalized",
				"maxSupportedTransactionVersion": 0,
			},
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.RPCURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chain rpc: %d %s", resp.StatusCode, string(body))
	}
	var out rpcResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("chain rpc: %d %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Result) == 0 || string(out.Result) == "null" {
		return nil, ErrTransactionNotFound
	}
	var res txResult
	if err := json.Unmarshal(out.Result, &res); err != nil {
		return nil, err
	}

	tx := &Transaction{Signature: signature, Slot: res.Slot}
	if res.Meta != nil && res.Meta.Err != nil {
		tx.Failed = true
	}
	for _, ins := range res.Transaction.Message.Instructions {
		if ins.Program != "spl-token" || ins.Parsed == nil {
			continue
		}
		if ins.Parsed.Type != "transfer" && ins.Parsed.Type != "transferChecked" {
			continue
		}
		raw := ins.Parsed.Info.Amount
		if ins.Parsed.Info.TokenAmount != nil {
			raw = ins.Parsed.Info.TokenAmount.Amount
		}
		amount, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		from := ins.Parsed.Info.Authority
		if from == "" {
			from = ins.Parsed.Info.Source
		}
		tx.Transfers = append(tx.Transfers, Transfer{
			From:   from,
			To:     ins.Parsed.Info.Destination,
			Amount: amount,
		})
	}
	return tx, nil
}
