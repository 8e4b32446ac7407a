package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TIANLI0/reefmask/model"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     string            `json:"id"`
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args"`
}

type handlerFunc func(args []json.RawMessage) (any, *RemoteError)

// fakeServer 按方法名分发请求；没有处理函数的方法不会得到响应
type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	handlers map[string]handlerFunc
	conns    []*websocket.Conn
}

func newFakeServer(t *testing.T, handlers map[string]handlerFunc) *fakeServer {
	s := &fakeServer{handlers: handlers}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		defer conn.Close()

		var writeMu sync.Mutex
		for {
			var req rpcRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			h, ok := s.handlers[req.Method]
			if !ok {
				continue
			}
			go func(req rpcRequest) {
				result, rerr := h(req.Args)
				resp := map[string]any{"id": req.ID, "result": result}
				if rerr != nil {
					resp["error"] = rerr
				}
				writeMu.Lock()
				defer writeMu.Unlock()
				_ = conn.WriteJSON(resp)
			}(req)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *fakeServer) dropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
}

func dial(t *testing.T, s *fakeServer, opts ...Option) *WSClient {
	t.Helper()
	c, err := Dial(context.Background(), s.url(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCreateMask(t *testing.T) {
	s := newFakeServer(t, map[string]handlerFunc{
		"create_mask": func(args []json.RawMessage) (any, *RemoteError) {
			var prompts []model.PromptPoint
			if len(args) != 1 || json.Unmarshal(args[0], &prompts) != nil {
				return nil, &RemoteError{Text: "bad args"}
			}
			return model.Annotation{
				ID:           len(prompts),
				CategoryID:   -2,
				Segmentation: model.Segmentation{Size: [2]int{2, 2}, Counts: "04"},
				Area:         4,
				BBox:         []float64{0, 0, 2, 2},
			}, nil
		},
	})
	c := dial(t, s)

	ann, err := c.CreateMask(context.Background(), "reef.jpg", []model.PromptPoint{
		{ImageX: 1, ImageY: 1, Label: model.PromptPositive},
		{ImageX: 0, ImageY: 1, Label: model.PromptNegative},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ann.ID)
	assert.Equal(t, -2, ann.CategoryID)
	assert.Equal(t, "04", ann.Segmentation.Counts)
}

func TestRemoteError(t *testing.T) {
	s := newFakeServer(t, map[string]handlerFunc{
		"save_data": func(args []json.RawMessage) (any, *RemoteError) {
			return nil, &RemoteError{Text: "disk full", Traceback: "Traceback..."}
		},
	})
	c := dial(t, s)

	err := c.SaveData(context.Background(), model.ProjectData{})
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "disk full", remote.Text)
	assert.Contains(t, err.Error(), "save_data")
}

func TestNullResult(t *testing.T) {
	s := newFakeServer(t, map[string]handlerFunc{
		"get_next_data": func(args []json.RawMessage) (any, *RemoteError) { return nil, nil },
		"get_data_by_idx": func(args []json.RawMessage) (any, *RemoteError) {
			var idx int
			_ = json.Unmarshal(args[0], &idx)
			return model.DataPayload{Idx: idx, ImageName: "b.jpg"}, nil
		},
	})
	c := dial(t, s)

	_, err := c.NextData(context.Background())
	assert.ErrorIs(t, err, ErrNoData)

	d, err := c.DataByIdx(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, d.Idx)
	assert.Equal(t, "b.jpg", d.ImageName)
}

func TestConcurrentCalls(t *testing.T) {
	s := newFakeServer(t, map[string]handlerFunc{
		"get_data_ids_by_category_id": func(args []json.RawMessage) (any, *RemoteError) {
			var id int
			_ = json.Unmarshal(args[0], &id)
			time.Sleep(time.Duration(10-id) * time.Millisecond)
			return []int{id, id}, nil
		},
	})
	c := dial(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids, err := c.DataIDsByCategory(context.Background(), i)
			assert.NoError(t, err)
			assert.Equal(t, []int{i, i}, ids)
		}(i)
	}
	wg.Wait()
}

func TestCallTimeout(t *testing.T) {
	s := newFakeServer(t, map[string]handlerFunc{})
	c := dial(t, s, WithRequestTimeout(50*time.Millisecond))

	_, err := c.DataList(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.CurrentData(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClosedConnection(t *testing.T) {
	s := newFakeServer(t, map[string]handlerFunc{})
	c := dial(t, s)

	errc := make(chan error, 1)
	go func() {
		_, err := c.DataList(context.Background())
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	s.dropConnections()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("pending call not released")
	}

	_, err := c.DataList(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseClient(t *testing.T) {
	s := newFakeServer(t, map[string]handlerFunc{})
	c, err := Dial(context.Background(), s.url())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.ExportCOCO(context.Background(), "out.json"), ErrClosed)
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/rpc")
	assert.Error(t, err)
}
