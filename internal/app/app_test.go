package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/mailblocks/config"
	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/internal/domain/mocks"
	"github.com/Notifuse/mailblocks/pkg/blocks"
	"github.com/Notifuse/mailblocks/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: 5 * time.Second,
		},
		Security: config.SecurityConfig{
			JWTSecret:   []byte("0123456789abcdef0123456789abcdef"),
			JWTIssuer:   "mailblocks",
			JWTAudience: "mailblocks-api",
			TokenTTL:    time.Hour,
		},
		Export: config.ExportConfig{
			ContainerMaxWidth:     "640px",
			MaxConcurrentCompiles: 2,
			CompileTimeout:        time.Second,
		},
		RateLimit: config.RateLimitConfig{
			SendTestPerHour:  5,
			CompilePerMinute: 5,
		},
		Environment: "test",
		LogLevel:    "debug",
		Version:     config.VERSION,
	}
}

func setupTestApp(t *testing.T, cfg *config.Config) (*App, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	a := NewApp(cfg,
		WithMockDB(db),
		WithMockMailer(mocks.NewMockMailer(ctrl)),
		WithLogger(logger.NewTestLogger(t)),
	).(*App)
	return a, mock
}

func TestNewApp(t *testing.T) {
	cfg := testConfig()
	a := NewApp(cfg).(*App)

	assert.Equal(t, cfg, a.GetConfig())
	assert.NotNil(t, a.GetLogger())
	assert.NotNil(t, a.GetMux())
	assert.Equal(t, 5*time.Second, a.shutdownTimeout)
	assert.False(t, a.IsServerCreated())
	assert.Zero(t, a.GetActiveRequestCount())
}

func TestApp_Initialize(t *testing.T) {
	a, _ := setupTestApp(t, testConfig())

	require.NoError(t, a.Initialize())

	assert.NotNil(t, a.GetDB())
	assert.NotNil(t, a.GetMailer())
	assert.NotNil(t, a.GetTemplateRepository())
	require.NotNil(t, a.GetRegistry())
	assert.Len(t, a.GetRegistry().List(), len(blocks.AllBlockTypes))
	assert.Nil(t, a.compileCache)

	defaults, err := a.exportDefaults(blocks.NewCompatibility())
	require.NoError(t, err)
	assert.Equal(t, "640px", defaults.ContainerStyles.MaxWidth)
	assert.True(t, defaults.Doctype)
}

func TestApp_InitServicesWithCompileCache(t *testing.T) {
	cfg := testConfig()
	cfg.Export.CompileCacheTTL = time.Minute
	cfg.Export.CompileCacheSize = 8
	a, mock := setupTestApp(t, cfg)

	require.NoError(t, a.InitRepositories())
	require.NoError(t, a.InitServices())
	require.NotNil(t, a.compileCache)
	assert.Zero(t, a.compileCache.Len())

	mock.ExpectClose()
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestApp_InitMailerFallsBackToConsole(t *testing.T) {
	a := NewApp(testConfig(), WithLogger(logger.NewTestLogger(t))).(*App)
	require.NoError(t, a.InitMailer())
	assert.NotNil(t, a.GetMailer())
}

func TestApp_InitServicesRejectsBadExportConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		want   string
	}{
		{name: "unknown client", mutate: func(cfg *config.Config) { cfg.Export.EmailClients = []string{"lotus"} }, want: "EXPORT_EMAIL_CLIENTS"},
		{name: "bad width", mutate: func(cfg *config.Config) { cfg.Export.ContainerMaxWidth = "wide" }, want: "EXPORT_CONTAINER_MAX_WIDTH"},
		{name: "bad color", mutate: func(cfg *config.Config) { cfg.Export.ContainerBackgroundColor = "nope" }, want: "EXPORT_CONTAINER_BACKGROUND_COLOR"},
		{name: "missing secret", mutate: func(cfg *config.Config) { cfg.Security.JWTSecret = nil }, want: "auth service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			a, _ := setupTestApp(t, cfg)
			require.NoError(t, a.InitRepositories())
			err := a.InitServices()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestApp_Routes(t *testing.T) {
	a, mock := setupTestApp(t, testConfig())
	require.NoError(t, a.Initialize())
	handler := a.Handler()

	t.Run("healthz", func(t *testing.T) {
		mock.ExpectPing()
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("registry is public", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blocks.registry", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("apply requires a token", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/blocks.apply", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("apply with a token", func(t *testing.T) {
		auth, err := a.authService.IssueToken(&domain.User{ID: "user-1", Email: "user@example.com"})
		require.NoError(t, err)

		body, err := json.Marshal(map[string]interface{}{
			"operations": []map[string]interface{}{{"type": "insert", "block_type": "divider"}},
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/blocks.apply", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+auth.Token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp domain.ApplyOperationsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Blocks, 1)
		assert.Equal(t, blocks.TypeDivider, resp.Blocks[0].Type)
		assert.True(t, resp.Results[0].Applied)
	})
}

func TestApp_GracefulShutdownMiddleware(t *testing.T) {
	a, mock := setupTestApp(t, testConfig())

	release := make(chan struct{})
	entered := make(chan struct{})
	var calls int32
	handler := a.gracefulShutdownMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-release
		}
		w.WriteHeader(http.StatusOK)
	}))

	inFlight := httptest.NewRecorder()
	served := make(chan struct{})
	go func() {
		handler.ServeHTTP(inFlight, httptest.NewRequest(http.MethodGet, "/", nil))
		close(served)
	}()
	<-entered
	assert.Equal(t, int64(1), a.GetActiveRequestCount())

	a.shutdownCancel()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Server is shutting down")

	close(release)
	<-served
	assert.Equal(t, http.StatusOK, inFlight.Code)
	assert.Zero(t, a.GetActiveRequestCount())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	mock.ExpectClose()
	require.NoError(t, a.Shutdown(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApp_StartAndShutdown(t *testing.T) {
	a, mock := setupTestApp(t, testConfig())
	require.NoError(t, a.Initialize())

	errCh := make(chan error, 1)
	go func() { errCh <- a.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, a.WaitForServerStart(ctx))

	mock.ExpectClose()
	require.NoError(t, a.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}
