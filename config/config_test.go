package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ringdht/pkg/types"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
	assert.NoError(t, ValidateAll(cfg))
	assert.Error(t, ValidateAll(nil))

	assert.Equal(t, 3*time.Second, cfg.Liveness.ProbeInterval.Duration())
	assert.Equal(t, 200*time.Millisecond, cfg.Join.BootstrapInitialWait.Duration())
	assert.Equal(t, 10*time.Second, cfg.Join.BootstrapMaxWait.Duration())
	assert.True(t, cfg.Ring.AckMalformedSet)
	assert.True(t, cfg.Storage.InMemory())

	t.Log("✅ NewConfig 测试通过")
}

// TestSubConfig_Validate 测试子配置验证
func TestSubConfig_Validate(t *testing.T) {
	t.Run("Peer_BadListen", func(t *testing.T) {
		cfg := DefaultPeerConfig()
		cfg.ListenAddr = "nope"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Liveness_TimeoutTooLong", func(t *testing.T) {
		cfg := DefaultLivenessConfig()
		cfg.ProbeTimeout = cfg.ProbeInterval
		assert.Error(t, cfg.Validate())

		cfg.Enabled = false
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Join_MaxBelowInitial", func(t *testing.T) {
		cfg := DefaultJoinConfig()
		cfg.BootstrapMaxWait = Duration(time.Millisecond)
		assert.Error(t, cfg.Validate())
	})

	t.Run("Rendezvous_PowerOfTwoK", func(t *testing.T) {
		cfg := DefaultRendezvousConfig()
		cfg.Method = types.MethodPowerOfTwo
		cfg.K = 64
		assert.Error(t, cfg.Validate())
		cfg.K = 10
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Messaging_Rate", func(t *testing.T) {
		cfg := DefaultMessagingConfig()
		cfg.SendRate = 100
		cfg.SendBurst = 0
		assert.Error(t, cfg.Validate())
	})

	t.Log("✅ 子配置验证测试通过")
}

// TestDuration_JSON 测试 Duration 的 JSON 编解码
func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1500ms"`), &d))
	assert.Equal(t, 1500*time.Millisecond, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`2000000000`), &d))
	assert.Equal(t, 2*time.Second, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration(3 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"3s"`, string(out))

	t.Log("✅ Duration JSON 测试通过")
}

// TestFromJSON 测试部分覆盖
func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"peer": {"listen_addr": "127.0.0.1:9001", "rendezvous_addr": "127.0.0.1:9000"},
		"liveness": {"probe_interval": "5s"},
		"ring": {"ack_malformed_set": false}
	}`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:9001", cfg.Peer.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.Liveness.ProbeInterval.Duration())
	assert.Equal(t, time.Second, cfg.Liveness.ProbeTimeout.Duration(), "未出现的字段保留默认值")
	assert.False(t, cfg.Ring.AckMalformedSet)

	_, err = FromJSON([]byte(`{`))
	assert.Error(t, err)

	t.Log("✅ FromJSON 测试通过")
}

// TestLoadFile 测试从文件加载
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"rendezvous": {"k": 3, "method": 2}}`), 0o600))
	cfg, err := LoadFile(good)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), cfg.Rendezvous.K)
	assert.Equal(t, types.MethodPowerOfTwo, cfg.Rendezvous.Method)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"routing": {"lookup_attempts": 0}}`), 0o600))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	t.Log("✅ LoadFile 测试通过")
}

// TestCloneConfig 测试克隆
func TestCloneConfig(t *testing.T) {
	cfg := NewConfig()
	cloned := CloneConfig(cfg)
	cloned.Peer.ListenAddr = "127.0.0.1:1"
	assert.NotEqual(t, cfg.Peer.ListenAddr, cloned.Peer.ListenAddr)
	assert.Nil(t, CloneConfig(nil))

	data, err := cfg.ToJSON()
	require.NoError(t, err)
	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)

	t.Log("✅ CloneConfig 测试通过")
}
