// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCollect(t *testing.T) {
	set := NewSet()
	a := set.New("a", "counter a", Console)
	b := set.New("b", "counter b")
	n := 7
	set.New("c", "external c", Console, func() int { return n })
	a.Add(2)
	a.Add(3)
	b.Add(1)
	got := set.Collect(All)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{got[0].Name, got[1].Name, got[2].Name})
	assert.Equal(t, 5, got[0].V)
	assert.Equal(t, "5", got[0].Value)
	assert.Equal(t, 7, got[1].V)
	assert.Equal(t, 1, got[2].V)

	console := set.Collect(Console)
	assert.Len(t, console, 2)
}

func TestDistribution(t *testing.T) {
	set := NewSet()
	d := set.New("latency", "sample latency", Distribution{})
	assert.Equal(t, 0, d.Val())
	assert.Equal(t, "-", set.Collect(All)[0].Value)
	for i := 1; i <= 100; i++ {
		d.Add(i)
	}
	assert.InDelta(t, 50, d.Val(), 1)
	assert.InDelta(t, 50, d.Quantile(0.5), 5)
	assert.Contains(t, set.Collect(All)[0].Value, "100 samples")
}

func TestPrometheus(t *testing.T) {
	set := NewSet()
	v := set.New("frames", "resolved frames", Prometheus("test_frames_total"))
	v.Add(42)
	families, err := set.Registry().Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "test_frames_total", families[0].GetName())
	assert.Equal(t, 42.0, families[0].GetMetric()[0].GetGauge().GetValue())

	// Sets don't share registries.
	other := NewSet()
	other.New("frames", "resolved frames", Prometheus("test_frames_total"))
}

func TestConcurrentAdd(t *testing.T) {
	set := NewSet()
	v := set.New("v", "v")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				v.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10000, v.Val())
}

func TestBadOptions(t *testing.T) {
	set := NewSet()
	assert.Panics(t, func() { set.New("x", "x", 42) })
	set.New("y", "y")
	assert.Panics(t, func() { set.New("y", "y") })
	ext := set.New("z", "z", func() int { return 1 })
	assert.Panics(t, func() { ext.Add(1) })
}
