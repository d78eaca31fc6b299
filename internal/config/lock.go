package config

import "time"

// LockConfig tunes the realtime seat-lock channel.
//
// ReleaseOnDisconnect frees every lock a connection acquired when it goes
// away.  StrictUnlock restricts unlockSeat to the connection (or holder)
// that took the lock; when false any subscriber may unlock any seat.
type LockConfig struct {
	ReleaseOnDisconnect bool
	StrictUnlock        bool
	SendBuffer          int           // per-connection outbound queue length
	WriteTimeout        time.Duration // deadline for a single frame write
	PongTimeout         time.Duration // read deadline extended by each pong
	MaxMessageBytes     int64         // largest accepted client frame
}

// LoadLockConfig reads LOCK_* and WS_* variables with sensible defaults.
func LoadLockConfig() LockConfig {
	c := LockConfig{
		ReleaseOnDisconnect: envBool("LOCK_RELEASE_ON_DISCONNECT", true),
		StrictUnlock:        envBool("LOCK_STRICT_UNLOCK", true),
		SendBuffer:          envInt("WS_SEND_BUFFER", 64),
		WriteTimeout:        envDur("WS_WRITE_TIMEOUT", 10*time.Second),
		PongTimeout:         envDur("WS_PONG_TIMEOUT", 60*time.Second),
		MaxMessageBytes:     int64(envInt("WS_MAX_MESSAGE_BYTES", 4096)),
	}
	if c.SendBuffer < 1 {
		c.SendBuffer = 1
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 4096
	}
	return c
}

// PingInterval is how often the server pings an idle connection.  It must
// be shorter than PongTimeout.
func (c LockConfig) PingInterval() time.Duration { return c.PongTimeout * 9 / 10 }
