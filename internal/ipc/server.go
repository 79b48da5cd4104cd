package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"voicequeue/internal/api"
	"voicequeue/internal/daemon"
	"voicequeue/internal/lines"
	"voicequeue/internal/logging"
	"voicequeue/internal/logs"
	"voicequeue/internal/session"
)

// serviceName is the JSON-RPC receiver name; clients call "VoiceQueue.<Method>".
const serviceName = "VoiceQueue"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client asks the daemon process to exit; it may be nil.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx, shutdown: shutdown}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun voicequeue stop"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.logger.Info("daemon shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	if s.shutdown != nil {
		// Let the reply reach the client before the listener goes away.
		time.AfterFunc(50*time.Millisecond, s.shutdown)
		resp.Acknowledged = true
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	resp.Status = s.daemon.Payload(s.daemon.Status(ctx))
	return nil
}

func (s *service) LinesAdd(req LinesAddRequest, resp *LinesAddResponse) error {
	added, err := s.daemon.AddLines(req.Text, lines.AppendOptions{
		SourceFile: req.SourceFile,
		VoiceID:    req.VoiceID,
		VoiceName:  req.VoiceName,
	})
	if err != nil {
		return err
	}
	resp.Lines = api.FromLines(added, nil)
	return nil
}

func (s *service) LinesList(req LinesListRequest, resp *LinesListResponse) error {
	statuses := make([]lines.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		status, ok := lines.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown line status %q", raw)
		}
		statuses = append(statuses, status)
	}
	items, selection := s.daemon.Lines(statuses...)
	resp.Lines = api.FromLines(items, selection)
	return nil
}

func (s *service) LineUpdate(req LineUpdateRequest, resp *LineUpdateResponse) error {
	line, err := s.daemon.UpdateLine(req.ID, lines.Patch{
		Text:      req.Text,
		VoiceID:   req.VoiceID,
		VoiceName: req.VoiceName,
	})
	if err != nil {
		return err
	}
	resp.Line = api.FromLine(line)
	return nil
}

func (s *service) LinesRemove(req LinesRemoveRequest, resp *LinesRemoveResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("remove requires at least one line id")
	}
	resp.Removed = s.daemon.DeleteLines(req.IDs)
	s.logger.Info("lines removed",
		logging.String(logging.FieldEventType, "lines_removed"),
		logging.Int("removed_count", len(resp.Removed)))
	return nil
}

func (s *service) LineMove(req LineMoveRequest, resp *LineMoveResponse) error {
	if err := s.daemon.MoveLine(req.From, req.To); err != nil {
		return err
	}
	items, selection := s.daemon.Lines()
	resp.Lines = api.FromLines(items, selection)
	return nil
}

func (s *service) LinesClear(_ LinesClearRequest, resp *LinesClearResponse) error {
	resp.Removed = s.daemon.ClearLines()
	s.logger.Info("lines cleared",
		logging.String(logging.FieldEventType, "lines_cleared"),
		logging.Int("removed_count", resp.Removed))
	return nil
}

func (s *service) LinesSelect(req LinesSelectRequest, resp *LinesSelectResponse) error {
	resp.Selected = s.daemon.SelectLines(req.IDs)
	return nil
}

func (s *service) LinesRetry(req LinesRetryRequest, resp *LinesRetryResponse) error {
	resp.Retried = s.daemon.RetryLines(req.IDs)
	s.logger.Info("lines retried",
		logging.String(logging.FieldEventType, "lines_retried"),
		logging.Int("updated_count", len(resp.Retried)))
	return nil
}

func (s *service) SessionGet(_ SessionGetRequest, resp *SessionResponse) error {
	resp.Session = api.FromSession(s.daemon.Session())
	return nil
}

func (s *service) SessionUpdate(req SessionUpdateRequest, resp *SessionResponse) error {
	update := session.Update{
		OutputFolder:     req.OutputFolder,
		DefaultVoiceID:   req.DefaultVoiceID,
		DefaultVoiceName: req.DefaultVoiceName,
		ModelID:          req.ModelID,
	}
	if req.Voice != nil {
		voice := api.ToVoiceSettings(*req.Voice)
		update.Voice = &voice
	}
	settings, err := s.daemon.UpdateSession(update)
	if err != nil {
		return err
	}
	resp.Session = api.FromSession(settings)
	return nil
}

func (s *service) RunStart(req RunStartRequest, resp *RunResponse) error {
	status, err := s.daemon.StartRun(req.Policy, req.Concurrency)
	if err != nil {
		return err
	}
	resp.Run = api.FromRunStatus(status)
	return nil
}

func (s *service) RunPause(_ RunControlRequest, resp *RunResponse) error {
	if err := s.daemon.PauseRun(); err != nil {
		return err
	}
	resp.Run = api.FromRunStatus(s.daemon.RunStatus())
	return nil
}

func (s *service) RunResume(_ RunControlRequest, resp *RunResponse) error {
	if err := s.daemon.ResumeRun(); err != nil {
		return err
	}
	resp.Run = api.FromRunStatus(s.daemon.RunStatus())
	return nil
}

func (s *service) RunStop(_ RunControlRequest, resp *RunResponse) error {
	if err := s.daemon.StopRun(); err != nil {
		return err
	}
	resp.Run = api.FromRunStatus(s.daemon.RunStatus())
	return nil
}

func (s *service) Stats(_ StatsRequest, resp *StatsResponse) error {
	resp.Stats = api.FromStats(s.daemon.Stats())
	return nil
}

func (s *service) History(_ HistoryRequest, resp *HistoryResponse) error {
	resp.Entries = api.FromHistory(s.daemon.History())
	return nil
}

func (s *service) HistoryClear(_ HistoryClearRequest, resp *HistoryClearResponse) error {
	removed, err := s.daemon.ClearHistory(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) RecoveryShow(_ RecoveryRequest, resp *RecoveryResponse) error {
	snap, err := s.daemon.PendingRecovery(s.ctx)
	if err != nil {
		return err
	}
	resp.Offer = api.FromSnapshot(snap)
	return nil
}

func (s *service) RecoveryRestore(_ RecoveryRequest, resp *RecoveryResponse) error {
	snap, err := s.daemon.RestoreRecovery(s.ctx)
	if err != nil {
		return err
	}
	resp.Offer = api.FromSnapshot(&snap)
	return nil
}

func (s *service) RecoveryDiscard(_ RecoveryRequest, resp *RecoveryResponse) error {
	snap, err := s.daemon.PendingRecovery(s.ctx)
	if err != nil {
		return err
	}
	if err := s.daemon.DiscardRecovery(s.ctx); err != nil {
		return err
	}
	resp.Offer = api.FromSnapshot(snap)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
		Match:  req.Match,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	resp.DBPath = health.Path
	resp.Exists = health.Exists
	resp.Readable = health.Readable
	resp.SchemaVersion = health.SchemaVersion
	resp.IntegrityCheck = health.IntegrityCheck
	resp.Records = health.Records
	resp.Error = health.Error
	if err != nil && health.Error == "" {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
