package async_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/m-mizutani/breakwatch/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
)

// newJSONLogger returns a context carrying a logger writing JSON records to buf
func newJSONLogger(buf *bytes.Buffer) context.Context {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.With(context.Background(), logger)
}

func parseRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var record map[string]any
		gt.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	return records
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not finish within timeout")
	}
}

func TestDispatch_TaskAttribute(t *testing.T) {
	var buf bytes.Buffer
	ctx := newJSONLogger(&buf)

	done := async.Dispatch(ctx, "breaking_check", func(ctx context.Context) error {
		ctxlog.From(ctx).Info("checking")
		ctxlog.From(ctx).Debug("still checking")
		return errors.New("catalog unavailable")
	})
	waitDone(t, done)

	records := parseRecords(t, &buf)
	gt.Equal(t, len(records), 3)
	for _, record := range records {
		gt.Equal(t, record["task"], any("breaking_check"))
	}
	gt.Equal(t, records[2]["msg"], any("error in async handler"))
	gt.Equal(t, records[2]["error"], any("catalog unavailable"))
}

func TestDispatch_Panic(t *testing.T) {
	var buf bytes.Buffer
	ctx := newJSONLogger(&buf)

	done := async.Dispatch(ctx, "panicky", func(ctx context.Context) error {
		panic("unexpected nil report")
	})
	waitDone(t, done)

	records := parseRecords(t, &buf)
	gt.Equal(t, len(records), 1)
	gt.Equal(t, records[0]["msg"], any("panic in async handler"))
	gt.Equal(t, records[0]["task"], any("panicky"))
	gt.Equal(t, records[0]["recover"], any("unexpected nil report"))
	gt.String(t, records[0]["stack"].(string)).Contains("dispatch_test.go")
}

func TestDispatch_Success(t *testing.T) {
	var buf bytes.Buffer
	ctx := newJSONLogger(&buf)

	var called bool
	done := async.Dispatch(ctx, "noop", func(ctx context.Context) error {
		called = true
		return nil
	})
	waitDone(t, done)

	gt.True(t, called)
	gt.Equal(t, buf.Len(), 0)
}

type requestKey struct{}

func TestDispatch_DetachedFromCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = context.WithValue(ctx, requestKey{}, "request scoped")

	release := make(chan struct{})
	var (
		cancelled bool
		value     any
	)
	done := async.Dispatch(ctx, "detached", func(newCtx context.Context) error {
		<-release
		cancelled = newCtx.Err() != nil
		value = newCtx.Value(requestKey{})
		return nil
	})

	cancel()
	close(release)
	waitDone(t, done)

	gt.False(t, cancelled)
	gt.Value(t, value).Nil()
}
