// Package cache 提供按提交哈希索引的内存 LRU 缓存。
// 提交对象不可变，因此由提交解码出的结果可以无限期复用，只受容量限制。
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultSize 是未配置容量时使用的条目数。
const DefaultSize = 256

// Commits 缓存以提交哈希为键的解码结果。并发安全。
type Commits[V any] struct {
	lru *lru.Cache
}

// New 创建容量为 size 的缓存；size <= 0 时使用 DefaultSize。
func New[V any](size int) (*Commits[V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create commit cache: %w", err)
	}
	return &Commits[V]{lru: c}, nil
}

// Get 返回 hash 对应的缓存值。
func (c *Commits[V]) Get(hash string) (V, bool) {
	var zero V
	v, ok := c.lru.Get(hash)
	if !ok {
		return zero, false
	}
	out, ok := v.(V)
	if !ok {
		return zero, false
	}
	return out, true
}

// Add 写入一条缓存，超出容量时淘汰最久未使用的条目。
func (c *Commits[V]) Add(hash string, v V) {
	c.lru.Add(hash, v)
}

// Len 返回当前条目数。
func (c *Commits[V]) Len() int {
	return c.lru.Len()
}

// Purge 清空缓存。
func (c *Commits[V]) Purge() {
	c.lru.Purge()
}
