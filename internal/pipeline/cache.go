package pipeline

import "strings"

// NormalizeCompany returns the dedupe key for a company name.
func NormalizeCompany(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Cache maps normalized company names to generated email bodies for the
// lifetime of one run. It is not safe for concurrent use; rows are processed
// one at a time.
type Cache struct {
	entries map[string]string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns the cached body for company.
func (c *Cache) Get(company string) (string, bool) {
	body, ok := c.entries[NormalizeCompany(company)]
	return body, ok
}

// Put stores a generated body for company.
func (c *Cache) Put(company, body string) {
	c.entries[NormalizeCompany(company)] = body
}

// Len returns the number of cached companies.
func (c *Cache) Len() int { return len(c.entries) }
