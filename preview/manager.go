// Package preview fetches, scales and caches tile preview images.
package preview

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/alexballas/xfilehost/api"
)

// TargetSize is the edge of the square previews, twice the default icon
// size for high density displays.
const TargetSize = 128

var (
	MaxCacheSize  int64 = 200 * 1024 * 1024 // 200MB
	MaxCacheFiles int   = 10000
)

// Fetcher downloads a preview payload.
type Fetcher interface {
	Fetch(ctx context.Context, link string) (*api.Blob, error)
}

type request struct {
	link     string
	callback func(image.Image)
}

// Manager serves letterboxed previews from memory, then disk, then the
// network. Pending loads are served newest first so the tiles currently on
// screen win over ones scrolled past.
type Manager struct {
	fetcher  Fetcher
	cacheDir string
	log      zerolog.Logger

	cache sync.Map // link -> image.Image
	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	reqLock  sync.Mutex
	reqCond  *sync.Cond
	requests []request
	closed   bool
	workers  sync.WaitGroup
}

// NewManager starts workers goroutines. An empty cacheDir disables the disk cache.
func NewManager(fetcher Fetcher, cacheDir string, workers int, logger *zerolog.Logger) *Manager {
	if workers <= 0 {
		workers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		fetcher:  fetcher,
		cacheDir: cacheDir,
		log:      zerolog.Nop(),
		ctx:      ctx,
		cancel:   cancel,
		requests: make([]request, 0, 100),
	}
	if logger != nil {
		m.log = logger.With().Str("component", "preview").Logger()
	}
	m.reqCond = sync.NewCond(&m.reqLock)

	if m.cacheDir != "" {
		if err := os.MkdirAll(m.cacheDir, 0755); err != nil {
			m.log.Warn().Err(err).Msg("disk cache disabled")
			m.cacheDir = ""
		} else {
			go m.cleanupCache()
		}
	}

	m.workers.Add(workers)
	for range workers {
		go m.worker()
	}
	return m
}

// DefaultCacheDir returns <UserCacheDir>/xfilehost/previews, or "" when
// there is no user cache directory.
func DefaultCacheDir() string {
	userCache, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(userCache, "xfilehost", "previews")
}

// LoadMemoryOnly returns the preview for link if it is already in memory.
func (m *Manager) LoadMemoryOnly(link string) image.Image {
	if cached, ok := m.cache.Load(link); ok {
		return cached.(image.Image)
	}
	return nil
}

// Load queues link and calls callback from a worker once the preview is
// ready. Failed loads never call back.
func (m *Manager) Load(link string, callback func(image.Image)) {
	if link == "" {
		return
	}
	if img := m.LoadMemoryOnly(link); img != nil {
		callback(img)
		return
	}

	m.reqLock.Lock()
	defer m.reqLock.Unlock()
	if m.closed {
		return
	}
	// Keep the pending set small: drop the oldest request.
	if len(m.requests) >= 100 {
		m.requests = m.requests[1:]
	}
	m.requests = append(m.requests, request{link: link, callback: callback})
	m.reqCond.Signal()
}

// Get returns the preview for link, fetching it if needed. Concurrent calls
// for the same link share one fetch.
func (m *Manager) Get(ctx context.Context, link string) (image.Image, error) {
	if img := m.LoadMemoryOnly(link); img != nil {
		return img, nil
	}
	if img := m.loadDisk(link); img != nil {
		m.cache.Store(link, img)
		return img, nil
	}

	v, err, _ := m.group.Do(link, func() (interface{}, error) {
		blob, err := m.fetcher.Fetch(ctx, link)
		if err != nil {
			return nil, err
		}
		src, _, err := image.Decode(bytes.NewReader(blob.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode preview: %w", err)
		}
		dst := Letterbox(src, TargetSize)
		if dst == nil {
			return nil, fmt.Errorf("empty preview image")
		}
		m.cache.Store(link, image.Image(dst))
		m.storeDisk(link, dst)
		return dst, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// Close stops the workers and drops pending requests.
func (m *Manager) Close() {
	m.reqLock.Lock()
	m.closed = true
	m.requests = nil
	m.reqCond.Broadcast()
	m.reqLock.Unlock()
	m.cancel()
	m.workers.Wait()
}

func (m *Manager) worker() {
	defer m.workers.Done()
	for {
		m.reqLock.Lock()
		for len(m.requests) == 0 && !m.closed {
			m.reqCond.Wait()
		}
		if m.closed {
			m.reqLock.Unlock()
			return
		}
		// Pop LAST request (LIFO)
		lastIdx := len(m.requests) - 1
		req := m.requests[lastIdx]
		m.requests = m.requests[:lastIdx]
		m.reqLock.Unlock()

		img, err := m.Get(m.ctx, req.link)
		if err != nil {
			m.log.Debug().Err(err).Str("link", req.link).Msg("preview failed")
			continue
		}
		req.callback(img)
	}
}

// Letterbox scales img to fit a size x size black square, keeping its
// aspect ratio. It returns nil for an empty image.
func Letterbox(img image.Image, size int) *image.RGBA {
	srcBounds := img.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{image.Black}, image.Point{}, draw.Src)

	var scaledW, scaledH int
	ratio := float64(srcW) / float64(srcH)
	if ratio > 1 {
		scaledW = size
		scaledH = max(1, int(float64(size)/ratio))
	} else {
		scaledH = size
		scaledW = max(1, int(float64(size)*ratio))
	}

	xBase := (size - scaledW) / 2
	yBase := (size - scaledH) / 2
	targetRect := image.Rect(xBase, yBase, xBase+scaledW, yBase+scaledH)

	// Use ApproxBiLinear for speed
	draw.ApproxBiLinear.Scale(dst, targetRect, img, srcBounds, draw.Over, nil)
	return dst
}

func cacheKey(link string) string {
	sum := sha256.Sum256([]byte(link))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) cachePath(link string) string {
	return filepath.Join(m.cacheDir, cacheKey(link)+".jpg")
}

func (m *Manager) loadDisk(link string) image.Image {
	if m.cacheDir == "" {
		return nil
	}
	path := m.cachePath(link)
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		_ = os.Remove(path)
		return nil
	}
	// Touch for LRU eviction.
	now := time.Now()
	_ = os.Chtimes(path, now, now)
	return img
}

func (m *Manager) storeDisk(link string, img image.Image) {
	if m.cacheDir == "" {
		return
	}
	path := m.cachePath(link)
	tmp, err := os.CreateTemp(m.cacheDir, ".preview-*")
	if err != nil {
		return
	}
	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: 85}); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
	}
}

// cleanupCache evicts the least recently used files down to 80% of the
// limits once either limit is exceeded.
func (m *Manager) cleanupCache() {
	if m.cacheDir == "" {
		return
	}

	files, err := os.ReadDir(m.cacheDir)
	if err != nil {
		return
	}

	type fileInfo struct {
		name string
		size int64
		time time.Time
	}

	var cachedFiles []fileInfo
	var totalSize int64

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".jpg" {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		cachedFiles = append(cachedFiles, fileInfo{
			name: f.Name(),
			size: info.Size(),
			time: info.ModTime(),
		})
		totalSize += info.Size()
	}

	if totalSize <= MaxCacheSize && len(cachedFiles) <= MaxCacheFiles {
		return
	}

	sort.Slice(cachedFiles, func(i, j int) bool {
		return cachedFiles[i].time.Before(cachedFiles[j].time)
	})

	removed := 0
	for _, f := range cachedFiles {
		if totalSize <= int64(float64(MaxCacheSize)*0.8) && len(cachedFiles) <= int(float64(MaxCacheFiles)*0.8) {
			break
		}
		_ = os.Remove(filepath.Join(m.cacheDir, f.name))
		totalSize -= f.size
		cachedFiles = cachedFiles[1:]
		removed++
	}
	m.log.Debug().Int("removed", removed).Msg("preview cache trimmed")
}
