package esplora

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/go-elements/transaction"
	"golang.org/x/time/rate"
)

const (
	requestTimeout = 30 * time.Second

	// public esplora instances throttle bursts of requests
	requestsPerSecond = 10
	requestBurst      = 5
)

type explorer struct {
	baseUrl string
	client  *http.Client
	limiter *rate.Limiter

	lock  sync.RWMutex
	cache map[string]*transaction.Transaction
}

func NewExplorer(baseUrl string) ports.Explorer {
	return &explorer{
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		cache:   make(map[string]*transaction.Transaction),
	}
}

func (e *explorer) FetchUtxo(
	ctx context.Context, ref domain.UtxoRef,
) (*transaction.TxOutput, error) {
	tx, err := e.getTx(ctx, ref.Txid)
	if err != nil {
		return nil, err
	}

	if int(ref.VOut) >= len(tx.Outputs) {
		return nil, fmt.Errorf(
			"tx %s has %d outputs, %d requested", ref.Txid, len(tx.Outputs), ref.VOut,
		)
	}
	return tx.Outputs[ref.VOut], nil
}

func (e *explorer) Broadcast(ctx context.Context, txHex string) (string, error) {
	tx, err := transaction.NewTxFromHex(txHex)
	if err != nil {
		return "", fmt.Errorf("invalid tx hex: %s", err)
	}
	txid := tx.TxHash().String()

	body, err := e.request(ctx, http.MethodPost, "/tx", bytes.NewBufferString(txHex))
	if err != nil {
		if strings.Contains(
			strings.ToLower(err.Error()), "transaction already in block chain",
		) {
			return txid, nil
		}
		return "", err
	}

	e.lock.Lock()
	e.cache[txid] = tx
	e.lock.Unlock()

	if res := strings.TrimSpace(string(body)); res != txid {
		log.Warnf("explorer returned txid %s, expected %s", res, txid)
	}
	return txid, nil
}

func (e *explorer) GetTipHeight(ctx context.Context) (uint32, error) {
	body, err := e.request(ctx, http.MethodGet, "/blocks/tip/height", nil)
	if err != nil {
		return 0, err
	}

	height, err := strconv.ParseUint(strings.TrimSpace(string(body)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid tip height: %s", err)
	}
	return uint32(height), nil
}

func (e *explorer) getTx(ctx context.Context, txid string) (*transaction.Transaction, error) {
	e.lock.RLock()
	tx, ok := e.cache[txid]
	e.lock.RUnlock()
	if ok {
		return tx, nil
	}

	body, err := e.request(ctx, http.MethodGet, fmt.Sprintf("/tx/%s/hex", txid), nil)
	if err != nil {
		return nil, err
	}

	tx, err = transaction.NewTxFromHex(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("invalid tx %s: %s", txid, err)
	}

	e.lock.Lock()
	e.cache[txid] = tx
	e.lock.Unlock()

	return tx, nil
}

func (e *explorer) request(
	ctx context.Context, method, path string, reqBody io.Reader,
) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseUrl+path, reqBody)
	if err != nil {
		return nil, err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: %s", method, path, string(body))
	}
	return body, nil
}
