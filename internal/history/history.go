// Package history keeps a per-session cache of previously seen protocol
// messages, keyed by canonical chat address and message id. It answers the
// engine's message-resolution callback and is persisted to the session's
// <id>_store.json file on a fixed interval and at clean shutdown.
package history

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
)

type Cache struct {
	mu       sync.RWMutex
	path     string
	messages map[string][]byte
	dirty    bool
}

type fileFormat struct {
	Messages map[string][]byte `json:"messages"`
}

// Open loads the cache file at path. A missing file yields an empty cache;
// a corrupt file is discarded rather than failing the session.
func Open(path string) *Cache {
	c := &Cache{
		path:     path,
		messages: make(map[string][]byte),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return c
	}

	var stored fileFormat
	if err := json.Unmarshal(raw, &stored); err != nil {
		return c
	}
	if stored.Messages != nil {
		c.messages = stored.Messages
	}
	return c
}

func key(chatJID, messageID string) string {
	return chatJID + "|" + messageID
}

func (c *Cache) Put(chatJID, messageID string, raw []byte) {
	if chatJID == "" || messageID == "" || len(raw) == 0 {
		return
	}
	c.mu.Lock()
	c.messages[key(chatJID, messageID)] = raw
	c.dirty = true
	c.mu.Unlock()
}

func (c *Cache) Get(chatJID, messageID string) ([]byte, bool) {
	c.mu.RLock()
	raw, ok := c.messages[key(chatJID, messageID)]
	c.mu.RUnlock()
	return raw, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Flush rewrites the cache file when the cache changed since the last write.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}
	if c.path == "" {
		return errors.New("history cache has no backing path")
	}

	raw, err := json.Marshal(fileFormat{Messages: c.messages})
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, raw, 0o600); err != nil {
		return err
	}
	c.dirty = false
	return nil
}
