/*
 * MIT License
 *
 * Copyright (c) 2025 bytefold contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package ioutil

import (
	"container/list"
	"context"
	"sync"
)

// CachedRandomAccess wraps a RandomAccess source with a bounded LRU block
// cache: reads are rounded to blockSize-aligned blocks, at most maxBlocks of
// which are held at a time. Concurrent reads to the same block coalesce to
// a single underlying fetch.
type CachedRandomAccess struct {
	src       RandomAccess
	blockSize uint64
	maxBlocks int

	mu      sync.Mutex
	order   *list.List
	blocks  map[uint64]*list.Element
	pending map[uint64]*blockFetch
}

type blockEntry struct {
	index uint64
	data  []byte
}

type blockFetch struct {
	done chan struct{}
	data []byte
	err  error
}

// NewCachedRandomAccess constructs the cache. blockSize and maxBlocks must
// both be positive.
func NewCachedRandomAccess(src RandomAccess, blockSize uint64, maxBlocks int) *CachedRandomAccess {
	return &CachedRandomAccess{
		src:       src,
		blockSize: blockSize,
		maxBlocks: maxBlocks,
		order:     list.New(),
		blocks:    make(map[uint64]*list.Element),
		pending:   make(map[uint64]*blockFetch),
	}
}

func (c *CachedRandomAccess) Size(ctx context.Context) (uint64, error) {
	return c.src.Size(ctx)
}

func (c *CachedRandomAccess) Close() error {
	return c.src.Close()
}

// ReadAt serves offset/length from the block cache, fetching and evicting
// as needed. Reads spanning multiple blocks are served by concatenating
// each block's overlapping slice.
func (c *CachedRandomAccess) ReadAt(ctx context.Context, offset uint64, length int) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}
	out := make([]byte, 0, length)
	remainingOffset := offset
	remaining := uint64(length)

	for remaining > 0 {
		blockIdx := remainingOffset / c.blockSize
		blockStart := blockIdx * c.blockSize
		inBlockOff := remainingOffset - blockStart

		data, err := c.fetchBlock(ctx, blockIdx)
		if err != nil {
			return nil, err
		}
		if inBlockOff >= uint64(len(data)) {
			break // source ended within this block
		}
		avail := uint64(len(data)) - inBlockOff
		take := remaining
		if take > avail {
			take = avail
		}
		out = append(out, data[inBlockOff:inBlockOff+take]...)
		remainingOffset += take
		remaining -= take

		if uint64(len(data)) < c.blockSize {
			break // short block: source EOF
		}
	}
	return out, nil
}

func (c *CachedRandomAccess) fetchBlock(ctx context.Context, index uint64) ([]byte, error) {
	c.mu.Lock()
	if el, ok := c.blocks[index]; ok {
		c.order.MoveToFront(el)
		data := el.Value.(*blockEntry).data
		c.mu.Unlock()
		return data, nil
	}
	if f, ok := c.pending[index]; ok {
		c.mu.Unlock()
		<-f.done
		return f.data, f.err
	}
	f := &blockFetch{done: make(chan struct{})}
	c.pending[index] = f
	c.mu.Unlock()

	data, err := c.src.ReadAt(ctx, index*c.blockSize, int(c.blockSize))
	f.data, f.err = data, err
	close(f.done)

	c.mu.Lock()
	delete(c.pending, index)
	if err == nil {
		c.insert(index, data)
	}
	c.mu.Unlock()

	return data, err
}

func (c *CachedRandomAccess) insert(index uint64, data []byte) {
	el := c.order.PushFront(&blockEntry{index: index, data: data})
	c.blocks[index] = el
	for c.order.Len() > c.maxBlocks {
		back := c.order.Back()
		if back == nil {
			break
		}
		be := back.Value.(*blockEntry)
		delete(c.blocks, be.index)
		c.order.Remove(back)
	}
}
