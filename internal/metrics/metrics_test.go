// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SendSucceeded()
		m.SendFailed()
		m.ConversationCreated()
		m.ConversationDeleted()
		m.PlaybackStarted()
		m.PlaybackFinished(true)
		m.ObserveGateway("send", "200", time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.SendSucceeded()
	m.SendFailed()
	m.SendFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sends.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sends.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rollbacks))

	m.PlaybackStarted()
	m.PlaybackStarted()
	m.PlaybackFinished(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.playbacksActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.playbacks.WithLabelValues("cancelled")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ConversationCreated()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rigchat_conversations_created_total 1")
}
