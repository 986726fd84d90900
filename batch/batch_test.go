package batch

import (
	"context"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniyakcom/yakjson/json"
)

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func TestRunOrderAndErrors(t *testing.T) {
	r, err := New(4, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer r.Release()

	jobs := make([]Job, 0, 20)
	for i := 0; i < 20; i++ {
		jobs = append(jobs, Job{Name: "doc" + strconv.Itoa(i), Data: []byte(`{"i":` + strconv.Itoa(i) + `}`)})
	}
	jobs = append(jobs, Job{Name: "bad", Data: []byte("{\"a\":\n  [1,]}")})

	results, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	for i := 0; i < 20; i++ {
		res := results[i]
		require.NoError(t, res.Err)
		assert.Equal(t, "doc"+strconv.Itoa(i), res.Name)
		assert.Equal(t, i, res.Value.GetInt("i"))
		assert.NoError(t, res.Factory.Free(res.Value))
	}

	bad := results[20]
	require.Error(t, bad.Err)
	assert.Nil(t, bad.Value)
	assert.True(t, errors.Is(bad.Err, json.ErrExpectingValue))
	assert.Contains(t, bad.Err.Error(), "batch: bad")
	assert.Equal(t, uint(1), bad.Line)
	assert.Equal(t, uint(6), bad.Column)

	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad", failed[0].Name)
}

func TestRunParserOptions(t *testing.T) {
	r, err := New(1, WithLogger(quietLogger()), WithParserOptions(json.WithMaxDepth(2)))
	require.NoError(t, err)
	defer r.Release()

	results, err := r.Run(context.Background(), []Job{
		{Name: "ok", Data: []byte(`[[1]]`)},
		{Name: "deep", Data: []byte(`[[[1]]]`)},
		{Name: "empty"},
	})
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, json.ErrMaxDepth)
	assert.ErrorIs(t, results[2].Err, json.ErrEmptyInput)
}

func TestRunCancelled(t *testing.T) {
	r, err := New(2, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer r.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := r.Run(ctx, []Job{{Name: "a", Data: []byte(`1`)}, {Name: "b", Data: []byte(`2`)}})
	assert.ErrorIs(t, err, context.Canceled)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Nil(t, res.Value)
	}
}

func TestRunAfterRelease(t *testing.T) {
	r, err := New(1, WithLogger(quietLogger()))
	require.NoError(t, err)
	r.Release()

	results, err := r.Run(context.Background(), []Job{{Name: "late", Data: []byte(`true`)}})
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "submit late")
}

func TestDefaultSize(t *testing.T) {
	r, err := New(0)
	require.NoError(t, err)
	defer r.Release()
	assert.Greater(t, r.Size(), 0)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r, err := New(2, WithLogger(quietLogger()), WithMetrics(m))
	require.NoError(t, err)
	defer r.Release()

	_, err = r.Run(context.Background(), []Job{
		{Name: "a", Data: []byte(`[1,2]`)},
		{Name: "b", Data: []byte(`{}`)},
		{Name: "c", Data: []byte(`nul`)},
	})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.docs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.docs.WithLabelValues("error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.bytes))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	// nil 安全
	var none *Metrics
	none.observe(&Result{})
}
