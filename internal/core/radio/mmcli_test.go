package radio

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsampler/internal/logger"
)

const mmcliLTE = `{"modem":{"signal":{"5g":{"rsrp":"--"},"gsm":{"rssi":"--"},
"lte":{"rsrp":"-101.00","rsrq":"-12.00","rssi":"-71.00","snr":"7.40"},
"umts":{"rscp":"--","rssi":"--"},"refresh":{"rate":"5"}}}}`

const mmcliGSM = `{"modem":{"signal":{"gsm":{"rssi":"-63.00"},"lte":{"rsrp":"-101.00"}}}}`

const mmcliNone = `{"modem":{"signal":{"gsm":{"rssi":"--"},"lte":{"rsrp":"--","rssi":"--"},"umts":{"rscp":"--"}}}}`

func TestParseMMCLISignal(t *testing.T) {
	report, err := parseMMCLISignal([]byte(mmcliLTE))
	require.NoError(t, err)
	v, ok := report.Dbm()
	require.True(t, ok)
	assert.Equal(t, -101, v)

	report, err = parseMMCLISignal([]byte(mmcliGSM))
	require.NoError(t, err)
	v, ok = report.Dbm()
	require.True(t, ok)
	assert.Equal(t, -63, v)

	report, err = parseMMCLISignal([]byte(mmcliNone))
	require.NoError(t, err)
	_, ok = report.Dbm()
	assert.False(t, ok)

	_, err = parseMMCLISignal([]byte("not json"))
	assert.Error(t, err)
}

type scriptedRun struct {
	mu      sync.Mutex
	outputs []string
	calls   int
}

func (s *scriptedRun) run(_ context.Context, args ...string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(args) > 2 && args[2] != "--signal-get" {
		return nil, nil
	}
	out := s.outputs[min(s.calls, len(s.outputs)-1)]
	s.calls++
	if out == "" {
		return nil, errors.New("modem busy")
	}
	return []byte(out), nil
}

func TestMMCLIFeedEmitsOnlyOnChange(t *testing.T) {
	script := &scriptedRun{outputs: []string{mmcliLTE, mmcliLTE, "", mmcliGSM, mmcliGSM, mmcliNone}}
	feed := NewMMCLIFeed("0", time.Millisecond, logger.Discard())
	feed.run = script.run

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []int
	done := make(chan error, 1)
	go func() {
		done <- feed.Watch(ctx, func(r Report) {
			mu.Lock()
			defer mu.Unlock()
			v, ok := r.Dbm()
			if !ok {
				v = 0
			}
			got = append(got, v)
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{-101, -63, 0}, got)
}

func TestMMCLIFeedMissingBinaryIsUnavailable(t *testing.T) {
	feed := NewMMCLIFeed("any", time.Millisecond, logger.Discard())
	feed.run = func(context.Context, ...string) ([]byte, error) {
		return nil, &exec.Error{Name: "mmcli", Err: exec.ErrNotFound}
	}

	err := feed.Watch(context.Background(), func(Report) {})
	assert.ErrorIs(t, err, ErrUnavailable)
}
