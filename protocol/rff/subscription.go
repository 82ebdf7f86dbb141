package rff

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	FULFILLMENT_PATH = "/api/v1/subscribe-fulfillment"
)

type fulfillmentRequest struct {
	RequestHash string `msgpack:"request_hash"`
}

type fulfillmentFrame struct {
	RequestHash string `msgpack:"request_hash"`
	Fulfilled   bool   `msgpack:"fulfilled"`
}

// WSSubscriber subscribes to fulfillment pushes over the coordination layer
// stream.
type WSSubscriber struct {
	url    string
	dialer *websocket.Dialer
}

func NewWSSubscriber(url string) *WSSubscriber {
	return &WSSubscriber{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (s *WSSubscriber) Subscribe(ctx context.Context, requestHash common.Hash) (Subscription, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url+FULFILLMENT_PATH, nil)
	if err != nil {
		return nil, err
	}

	payload, err := msgpack.Marshal(fulfillmentRequest{RequestHash: requestHash.Hex()})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		conn.Close()
		return nil, err
	}

	sub := &wsSubscription{
		conn:      conn,
		fulfilled: make(chan struct{}),
		errChn:    make(chan error, 1),
	}
	go sub.read(requestHash)

	return sub, nil
}

type wsSubscription struct {
	conn      *websocket.Conn
	fulfilled chan struct{}
	errChn    chan error
	closeOnce sync.Once
}

func (s *wsSubscription) read(requestHash common.Hash) {
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case s.errChn <- err:
			default:
			}
			return
		}

		f := new(fulfillmentFrame)
		if err := msgpack.Unmarshal(frame, f); err != nil {
			select {
			case s.errChn <- err:
			default:
			}
			return
		}

		if f.Fulfilled && common.HexToHash(f.RequestHash) == requestHash {
			close(s.fulfilled)
			return
		}
	}
}

func (s *wsSubscription) Fulfilled() <-chan struct{} {
	return s.fulfilled
}

func (s *wsSubscription) Err() <-chan error {
	return s.errChn
}

// Unsubscribe releases the underlying socket. Safe to call repeatedly, the
// race in the waiter may cancel a subscription that already resolved.
func (s *wsSubscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}
