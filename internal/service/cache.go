// cache.go — LRU-кэш метаданных документов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docsign/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных документов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных документов.",
	})
)

// CacheService — LRU-кэш метаданных документов с автоматическим TTL.
// Каждый экземпляр модуля имеет собственный in-memory кэш.
type CacheService struct {
	cache *expirable.LRU[string, *model.Document]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.Document](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает Document из кэша по documentID.
// Возвращает (запись, true) при hit или (nil, false) при miss.
func (c *CacheService) Get(documentID string) (*model.Document, bool) {
	val, ok := c.cache.Get(documentID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(documentID string, doc *model.Document) {
	c.cache.Add(documentID, doc)
}

// Delete удаляет запись из кэша.
func (c *CacheService) Delete(documentID string) {
	c.cache.Remove(documentID)
}
