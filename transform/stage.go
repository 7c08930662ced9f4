package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fulldump/lazytable/record"
	"github.com/fulldump/lazytable/utils"
)

var ErrStageClosed = errors.New("transform stage closed")

// Stage normalizes batches on its own worker goroutine. Callers talk to it
// only through Request/Response envelopes.
type Stage struct {
	mapper Mapper
	logger *zap.Logger

	requests  chan Request
	responses chan Response

	pendingMutex sync.Mutex
	pending      map[string]chan Response

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewStage(mapper Mapper, bufferSize int, logger *zap.Logger) *Stage {

	if mapper == nil {
		mapper = Normalize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Stage{
		mapper:    mapper,
		logger:    logger,
		requests:  make(chan Request, bufferSize),
		responses: make(chan Response, bufferSize),
		pending:   map[string]chan Response{},
		closed:    make(chan struct{}),
	}

	ready := make(chan struct{}, 2)
	s.wg.Add(2)
	go s.workerLoop(ready)
	go s.routerLoop(ready)
	<-ready
	<-ready

	return s
}

func (s *Stage) workerLoop(ready chan<- struct{}) {
	defer s.wg.Done()
	ready <- struct{}{}
	for {
		select {
		case req := <-s.requests:
			resp := s.handle(req)
			select {
			case s.responses <- resp:
			case <-s.closed:
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *Stage) routerLoop(ready chan<- struct{}) {
	defer s.wg.Done()
	ready <- struct{}{}
	for {
		select {
		case resp := <-s.responses:
			s.pendingMutex.Lock()
			reply, exists := s.pending[resp.ID]
			delete(s.pending, resp.ID)
			s.pendingMutex.Unlock()
			if !exists {
				s.logger.Debug("dropping response without caller", zap.String("request_id", resp.ID))
				continue
			}
			reply <- resp
		case <-s.closed:
			return
		}
	}
}

var actions = map[string]struct{}{
	ActionProcessData: {},
}

func (s *Stage) handle(req Request) Response {

	if req.Action != ActionProcessData {
		reason := fmt.Sprintf("unknown action '%s', must be [%s]", req.Action, strings.Join(utils.GetKeys(actions), "|"))
		s.logger.Error("transform rejected request", zap.String("request_id", req.ID), zap.String("reason", reason))
		return Response{ID: req.ID, Error: reason}
	}

	items, err := asSequence(req.Data)
	if err != nil {
		s.logger.Error("transform rejected request", zap.String("request_id", req.ID), zap.Error(err))
		return Response{ID: req.ID, Error: err.Error()}
	}

	processed := make([]record.Record, 0, len(items))
	for i, item := range items {
		r, err := s.mapper(item)
		if err != nil {
			reason := fmt.Sprintf("item %d: %s", i, err.Error())
			s.logger.Error("transform rejected item", zap.String("request_id", req.ID), zap.String("reason", reason))
			return Response{ID: req.ID, Error: reason}
		}
		processed = append(processed, r)
	}

	return Response{
		ID:     req.ID,
		Action: ActionProcessedData,
		Data:   processed,
	}
}

func asSequence(data any) ([]record.Raw, error) {
	switch v := data.(type) {
	case []record.Raw:
		return v, nil
	case []any:
		items := make([]record.Raw, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid data format received: item %d is %T, expected a map", i, item)
			}
			items = append(items, m)
		}
		return items, nil
	}
	return nil, fmt.Errorf("invalid data format received: expected an array, got %T", data)
}

// Submit sends data to the worker and returns the channel where its response
// will be delivered exactly once.
func (s *Stage) Submit(ctx context.Context, data any) (string, <-chan Response, error) {

	req := Request{
		ID:     uuid.New().String(),
		Action: ActionProcessData,
		Data:   data,
	}

	// register before enqueue, the worker may answer immediately
	reply := make(chan Response, 1)
	s.pendingMutex.Lock()
	s.pending[req.ID] = reply
	s.pendingMutex.Unlock()

	err := s.enqueue(ctx, req)
	if err != nil {
		return req.ID, nil, err
	}

	return req.ID, reply, nil
}

func (s *Stage) enqueue(ctx context.Context, req Request) error {
	select {
	case <-s.closed:
		s.forget(req.ID)
		return ErrStageClosed
	default:
	}

	select {
	case s.requests <- req:
		return nil
	case <-ctx.Done():
		s.forget(req.ID)
		return ctx.Err()
	case <-s.closed:
		s.forget(req.ID)
		return ErrStageClosed
	}
}

func (s *Stage) forget(id string) {
	s.pendingMutex.Lock()
	delete(s.pending, id)
	s.pendingMutex.Unlock()
}

// Process submits data and waits for its response.
func (s *Stage) Process(ctx context.Context, data any) ([]record.Record, error) {

	id, reply, err := s.Submit(ctx, data)
	if err != nil {
		return nil, err
	}

	select {
	case resp := <-reply:
		if resp.Error != "" {
			return nil, &InvalidInputError{Reason: resp.Error}
		}
		return resp.Data, nil
	case <-ctx.Done():
		s.forget(id)
		return nil, ctx.Err()
	case <-s.closed:
		return nil, ErrStageClosed
	}
}

// Pending is the number of requests waiting for a response.
func (s *Stage) Pending() int {
	s.pendingMutex.Lock()
	defer s.pendingMutex.Unlock()
	return len(s.pending)
}

func (s *Stage) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	s.wg.Wait()
}
