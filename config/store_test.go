package config

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// =============================================================================
// 🧪 Store 测试
// =============================================================================

func TestStore_SetGet(t *testing.T) {
	s := NewStore(Default())
	assert.Equal(t, Default(), s.Get())

	next := Config{StoragePath: "/tmp/users.db", Port: 8099}
	s.Set(next)
	assert.Equal(t, next, s.Get())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore(Config{StoragePath: "a", Port: 1})

	got := s.Get()
	got.StoragePath = "mutated"
	got.Port = 99

	assert.Equal(t, Config{StoragePath: "a", Port: 1}, s.Get())
}

// TestProperty_Store_NoTornReads 验证：写者总是写入 {path=p<i>, port=i} 这样
// 的配对值，任何并发读者观察到的快照都必须内部一致，绝不能看到撕裂写入。
func TestProperty_Store_NoTornReads(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numWrites := rapid.IntRange(1, 200).Draw(rt, "numWrites")
		s := NewStore(pairedConfig(0))

		var wg sync.WaitGroup
		stop := make(chan struct{})

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := s.Get()
				if got.StoragePath != fmt.Sprintf("p%d", got.Port) {
					rt.Errorf("torn read: %+v", got)
					return
				}
			}
		}()

		for i := 1; i <= numWrites; i++ {
			s.Set(pairedConfig(i))
		}

		close(stop)
		wg.Wait()
	})
}

func pairedConfig(i int) Config {
	return Config{StoragePath: fmt.Sprintf("p%d", i), Port: i}
}
