package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	xsXml "github.com/BLAZED-sh/xmlvalues/pkg/xml"
)

// Options configures a ValuesServer.
type Options struct {
	BufferSize      int
	MaxRead         int
	MaxDocumentSize int
	MaxConnections  int
	Logger          zerolog.Logger
}

// Response is written as one JSON line for every document received.
type Response struct {
	Values []string `json:"values"`
	Error  string   `json:"error,omitempty"`
}

// ConnectionInfo tracks a client connection and its document reader
type ConnectionInfo struct {
	conn      net.Conn
	reader    *xsXml.DocumentReader
	documents atomic.Int64
	createdAt int64 // Unix timestamp
}

// ValuesServer accepts NUL terminated XML documents on unix sockets and
// answers each one with the values found in it.
type ValuesServer struct {
	listeners  []net.Listener
	context    context.Context
	cancelFunc context.CancelFunc
	listening  bool
	logger     zerolog.Logger
	pool       *ants.Pool

	bufferSize      int
	maxRead         int
	maxDocumentSize int

	// Tracking active connections for debugging
	activeConnections      sync.Map // map[string]*ConnectionInfo
	activeConnectionsCount int64
	connectionSeq          atomic.Uint64
}

func NewValuesServer(opts Options) (*ValuesServer, error) {
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = 64
	}

	// Connections beyond the pool size are refused instead of queued
	pool, err := ants.NewPool(opts.MaxConnections, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())

	server := ValuesServer{
		listeners:       []net.Listener{},
		context:         cancelCtx,
		cancelFunc:      cancelFunc,
		logger:          opts.Logger.With().Str("component", "server").Logger(),
		pool:            pool,
		bufferSize:      opts.BufferSize,
		maxRead:         opts.MaxRead,
		maxDocumentSize: opts.MaxDocumentSize,
	}
	return &server, nil
}

func (s *ValuesServer) AddUnixSocketListener(context context.Context, path string) error {
	config := net.ListenConfig{}
	listener, err := config.Listen(context, "unix", path)
	if err != nil {
		return err
	}
	s.listeners = append(s.listeners, listener)
	return nil
}

func (s *ValuesServer) Listen() error {
	if len(s.listeners) == 0 {
		return errors.New("no listeners configured")
	}
	for _, listener := range s.listeners {
		go s.acceptConnections(listener)
	}
	s.listening = true
	return nil
}

func (s *ValuesServer) Shutdown() {
	s.cancelFunc()

	// Close all listeners
	for _, listener := range s.listeners {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error().Err(err).Msg("Error closing listener")
		}
	}

	// Unblock readers waiting on idle clients
	s.activeConnections.Range(func(_, value interface{}) bool {
		_ = value.(*ConnectionInfo).conn.Close()
		return true
	})

	s.pool.Release()
	s.listening = false
	s.logger.Info().Msg("Server shutdown complete")
}

// ActiveConnections returns the number of connections being served.
func (s *ValuesServer) ActiveConnections() int64 {
	return atomic.LoadInt64(&s.activeConnectionsCount)
}

// connectionSnapshot is what DumpDebugInfo renders for every connection.
type connectionSnapshot struct {
	ID        string
	Remote    string
	Documents int64
	CreatedAt int64
	Reader    xsXml.ReaderState
}

// DumpDebugInfo logs the state of every active connection and its reader
func (s *ValuesServer) DumpDebugInfo() {
	count := 0

	s.logger.Info().
		Int64("active_connections_count", s.ActiveConnections()).
		Int("pool_running", s.pool.Running()).
		Int("pool_free", s.pool.Free()).
		Int("pool_cap", s.pool.Cap()).
		Msg("Debug information")

	s.activeConnections.Range(func(key, value interface{}) bool {
		count++
		snapshot := value.(*ConnectionInfo).snapshot(key.(string))

		s.logger.Info().
			Str("connection_id", snapshot.ID).
			Str("buffer", fmt.Sprintf("Buffer length: %d, cursor: %d, capacity: %d",
				snapshot.Reader.Length,
				snapshot.Reader.Cursor,
				snapshot.Reader.Capacity)).
			Str("state", spew.Sdump(snapshot)).
			Msg("Connection debug info")

		return true
	})

	s.logger.Info().Int("actual_count", count).Msg("Finished dumping debug info")
}

func (c *ConnectionInfo) snapshot(id string) connectionSnapshot {
	remote := ""
	if addr := c.conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return connectionSnapshot{
		ID:        id,
		Remote:    remote,
		Documents: c.documents.Load(),
		CreatedAt: c.createdAt,
		Reader:    c.reader.State(),
	}
}

func (s *ValuesServer) acceptConnections(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			s.logger.Error().Err(err).Msg("Error accepting connection")
			continue
		}

		err = s.pool.Submit(func() {
			s.handleConnection(conn)
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("Refusing connection")
			_ = s.writeResponse(conn, Response{Values: []string{}, Error: err.Error()})
			_ = conn.Close()
		}
	}
}

func (s *ValuesServer) handleConnection(conn net.Conn) {
	connID := fmt.Sprintf("conn_%d", s.connectionSeq.Add(1))
	logger := s.logger.With().Str("connID", connID).Logger()

	reader := xsXml.NewDocumentReader(s.context, conn, s.bufferSize, s.maxRead)
	reader.SetMaxDocumentSize(s.maxDocumentSize)

	info := &ConnectionInfo{
		conn:      conn,
		reader:    reader,
		createdAt: time.Now().Unix(),
	}
	s.activeConnections.Store(connID, info)
	atomic.AddInt64(&s.activeConnectionsCount, 1)

	logger.Trace().Msg("Handling connection")

	defer func() {
		s.activeConnections.Delete(connID)
		atomic.AddInt64(&s.activeConnectionsCount, -1)
		_ = conn.Close()
		logger.Trace().Msg("Connection closed")
	}()

	reader.DecodeAll(func(doc []byte) {
		info.documents.Add(1)
		if err := s.handleDocument(doc, conn, logger); err != nil {
			logger.Error().Err(err).Msg("Error writing response")
		}
	}, func(err error) {
		if errors.Is(err, net.ErrClosed) {
			return
		}
		logger.Error().Err(err).Msg("Error reading from client")
		if errors.Is(err, xsXml.ErrDocumentTooLarge) {
			_ = s.writeResponse(conn, Response{Values: []string{}, Error: err.Error()})
		}
	})
}

func (s *ValuesServer) handleDocument(doc []byte, output net.Conn, logger zerolog.Logger) error {
	start := time.Now()

	values, err := xsXml.ExtractValues(doc)
	if err != nil {
		logger.Debug().Err(err).Int("size", len(doc)).Msg("Rejected document")
		return s.writeResponse(output, Response{Values: []string{}, Error: err.Error()})
	}

	logger.Trace().
		Int("size", len(doc)).
		Int("values", len(values)).
		Dur("took", time.Since(start)).
		Msg("Extracted values")

	return s.writeResponse(output, Response{Values: values})
}

func (s *ValuesServer) writeResponse(output net.Conn, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = output.Write(data)
	return err
}
