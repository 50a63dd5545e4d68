package node

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"p2sh_multisig/chain"
)

type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type RPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     int             `json:"id"`
}

// RPCError is the error object bitcoind puts in a response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// BTCDaemon is a JSON-RPC client for bitcoind. Requests are spread over
// sessionCount HTTP clients.
type BTCDaemon struct {
	url     string
	auth    string
	idCount int32
	clients []*http.Client
}

func NewBTCDaemon(url, user, pass string, sessionCount int) *BTCDaemon {
	if sessionCount < 1 {
		sessionCount = 1
	}
	clients := make([]*http.Client, sessionCount)
	for i := 0; i < sessionCount; i++ {
		clients[i] = &http.Client{}
	}
	return &BTCDaemon{
		url:     url,
		auth:    "Basic " + basicAuth(user, pass),
		clients: clients,
	}
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// Call sends one request and returns its result field.
func (d *BTCDaemon) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := atomic.AddInt32(&d.idCount, 1)
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(RPCRequest{
		JSONRPC: "1.0",
		ID:      int(id),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	client := d.clients[int(id)%len(d.clients)]
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", d.auth)

	log.Tracef("rpc %s id=%d", method, id)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", method, err)
	}

	// bitcoind answers RPC errors with a 500 and an error object.
	var rpcResp RPCResponse
	if jsonErr := json.Unmarshal(body, &rpcResp); jsonErr != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s: HTTP error %d: %s", method, resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%s: decode response: %w", method, jsonErr)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: HTTP error %d", method, resp.StatusCode)
	}
	return rpcResp.Result, nil
}

// ListUnspent returns the unspent outputs paying to addrs with at least
// minConf confirmations. The addresses must be watched by the node's wallet.
func (d *BTCDaemon) ListUnspent(ctx context.Context, minConf int, addrs []string) ([]chain.Unspent, error) {
	const maxConf = 9999999
	result, err := d.Call(ctx, "listunspent", []interface{}{minConf, maxConf, addrs})
	if err != nil {
		return nil, err
	}
	var unspent []chain.Unspent
	if err := json.Unmarshal(result, &unspent); err != nil {
		return nil, fmt.Errorf("listunspent: %w", err)
	}
	return unspent, nil
}

// DecodeRawTransaction asks the node to parse raw.
func (d *BTCDaemon) DecodeRawTransaction(ctx context.Context, raw []byte) (*chain.Tx, error) {
	result, err := d.Call(ctx, "decoderawtransaction", []interface{}{hex.EncodeToString(raw)})
	if err != nil {
		return nil, err
	}
	var tx chain.Tx
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, fmt.Errorf("decoderawtransaction: %w", err)
	}
	return &tx, nil
}

// SendRawTransaction broadcasts raw and returns the txid the node reports.
func (d *BTCDaemon) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	result, err := d.Call(ctx, "sendrawtransaction", []interface{}{hex.EncodeToString(raw)})
	if err != nil {
		return "", err
	}
	var txid string
	if err := json.Unmarshal(result, &txid); err != nil {
		return "", fmt.Errorf("sendrawtransaction: %w", err)
	}
	log.Infof("broadcast %s", txid)
	return txid, nil
}
