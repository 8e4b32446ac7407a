package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/utils"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

type response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RemoteError    `json:"error"`
}

// WSClient 通过 websocket 以 JSON-RPC 方式调用后端。
// 单个读协程按请求 id 分发响应，可并发调用。
type WSClient struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan response
	err     error
	done    chan struct{}
}

type Option func(*WSClient)

func WithLogger(logger *zap.Logger) Option {
	return func(c *WSClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestTimeout 单次调用的超时，0 表示不限时
func WithRequestTimeout(d time.Duration) Option {
	return func(c *WSClient) { c.timeout = d }
}

// Dial 连接后端
func Dial(ctx context.Context, url string, opts ...Option) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial backend %s: %w", url, err)
	}
	c := &WSClient{
		conn:    conn,
		logger:  zap.NewNop(),
		pending: make(map[string]chan response),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c, nil
}

func (c *WSClient) readLoop() {
	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.shutdown(err)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Warn("response for unknown request", zap.String("id", resp.ID))
			continue
		}
		ch <- resp
	}
}

func (c *WSClient) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = err
	c.pending = nil
	close(c.done)
	c.logger.Info("backend connection closed", zap.Error(err))
}

func (c *WSClient) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// call 发送请求并等待响应；out 为 nil 时忽略结果，结果为 null 时返回 ErrNoData
func (c *WSClient) call(ctx context.Context, method string, out any, args ...any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if args == nil {
		args = []any{}
	}

	id := utils.NewRequestID()
	ch := make(chan response, 1)
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, ErrClosed)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(request{ID: id, Method: method, Args: args})
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if out == nil {
			return nil
		}
		if len(resp.Result) == 0 || string(resp.Result) == "null" {
			return fmt.Errorf("%s: %w", method, ErrNoData)
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		c.forget(id)
		return fmt.Errorf("%s: %w", method, ctx.Err())
	case <-c.done:
		return fmt.Errorf("%s: %w", method, ErrClosed)
	}
}

func (c *WSClient) LoadProject(ctx context.Context, path string) ([]model.DataPayload, error) {
	var out []model.DataPayload
	err := c.call(ctx, "load_project", &out, path)
	return out, err
}

func (c *WSClient) CurrentData(ctx context.Context) (model.DataPayload, error) {
	var out model.DataPayload
	err := c.call(ctx, "get_current_data", &out)
	return out, err
}

func (c *WSClient) NextData(ctx context.Context) (model.DataPayload, error) {
	var out model.DataPayload
	err := c.call(ctx, "get_next_data", &out)
	return out, err
}

func (c *WSClient) PrevData(ctx context.Context) (model.DataPayload, error) {
	var out model.DataPayload
	err := c.call(ctx, "get_prev_data", &out)
	return out, err
}

func (c *WSClient) DataByIdx(ctx context.Context, idx int) (model.DataPayload, error) {
	var out model.DataPayload
	err := c.call(ctx, "get_data_by_idx", &out, idx)
	return out, err
}

func (c *WSClient) DataList(ctx context.Context) ([]model.DataPayload, error) {
	var out []model.DataPayload
	err := c.call(ctx, "get_data_list", &out)
	return out, err
}

func (c *WSClient) SaveData(ctx context.Context, data model.ProjectData) error {
	return c.call(ctx, "save_data", nil, data)
}

func (c *WSClient) SaveDataset(ctx context.Context, path string) error {
	return c.call(ctx, "save_dataset", nil, path)
}

// CreateMask 后端按当前图像推理，imageKey 不随请求发送
func (c *WSClient) CreateMask(ctx context.Context, imageKey string, prompts []model.PromptPoint) (model.Annotation, error) {
	var out model.Annotation
	err := c.call(ctx, "create_mask", &out, prompts)
	return out, err
}

func (c *WSClient) DataIDsByCategory(ctx context.Context, categoryID int) ([]int, error) {
	var out []int
	err := c.call(ctx, "get_data_ids_by_category_id", &out, categoryID)
	return out, err
}

func (c *WSClient) ExportImages(ctx context.Context, outputDir string) error {
	return c.call(ctx, "export_images", nil, outputDir)
}

func (c *WSClient) ExportAnnotatedImages(ctx context.Context, outputDir string, images []model.AnnotatedImage) error {
	return c.call(ctx, "export_annotated_images", nil, outputDir, images)
}

func (c *WSClient) ExportCOCO(ctx context.Context, outputPath string) error {
	return c.call(ctx, "export_coco", nil, outputPath)
}

// Close 发送关闭帧并断开连接，未完成的调用返回 ErrClosed
func (c *WSClient) Close() error {
	c.shutdown(ErrClosed)
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}
