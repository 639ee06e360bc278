package passages

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"contract-qa/internal/common/logger"
	"contract-qa/internal/embedding"
	"contract-qa/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES keeps just enough cluster state for alias-swapped rebuilds:
// physical indices with their documents and one alias.
type fakeES struct {
	mu          sync.Mutex
	docs        map[string][]esDocument
	mappings    map[string]map[string]interface{}
	aliased     []string
	deleted     []string
	bulkLines   []string
	bulkStatus  int
	searchBody  map[string]interface{}
	searchReply string
}

func newFakeES() *fakeES {
	return &fakeES{docs: make(map[string][]esDocument), mappings: make(map[string]map[string]interface{})}
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case path == "_alias/contract-passages":
		if len(f.aliased) == 0 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"alias [contract-passages] missing","status":404}`))
			return
		}
		reply := map[string]interface{}{}
		for _, name := range f.aliased {
			reply[name] = map[string]interface{}{"aliases": map[string]interface{}{"contract-passages": map[string]interface{}{}}}
		}
		_ = json.NewEncoder(w).Encode(reply)

	case path == "_aliases":
		var body struct {
			Actions []map[string]map[string]string `json:"actions"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, action := range body.Actions {
			if rm, ok := action["remove"]; ok {
				f.aliased = without(f.aliased, rm["index"])
			}
			if add, ok := action["add"]; ok {
				f.aliased = append(f.aliased, add["index"])
			}
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))

	case path == "_bulk":
		if f.bulkStatus != 0 {
			w.WriteHeader(f.bulkStatus)
			_, _ = w.Write([]byte(`{"error":"bulk rejected"}`))
			return
		}
		scanner := bufio.NewScanner(r.Body)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		var target string
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			f.bulkLines = append(f.bulkLines, line)
			var meta struct {
				Index *struct {
					Name string `json:"_index"`
				} `json:"index"`
			}
			if target == "" {
				_ = json.Unmarshal([]byte(line), &meta)
				if meta.Index != nil {
					target = meta.Index.Name
				}
				continue
			}
			var doc esDocument
			_ = json.Unmarshal([]byte(line), &doc)
			f.docs[target] = append(f.docs[target], doc)
			target = ""
		}
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))

	case path == "contract-passages/_search":
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &f.searchBody)
		if len(f.aliased) == 0 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"index_not_found_exception","status":404}`))
			return
		}
		if f.searchReply != "" {
			_, _ = w.Write([]byte(f.searchReply))
			return
		}
		var hits []interface{}
		for _, name := range f.aliased {
			for _, doc := range f.docs[name] {
				hits = append(hits, map[string]interface{}{"_score": 1.9, "_source": doc})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"hits": map[string]interface{}{"hits": hits}})

	case r.Method == http.MethodPut && strings.HasPrefix(path, "contract-passages-"):
		var mapping map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&mapping)
		f.mappings[path] = mapping
		_, _ = w.Write([]byte(`{"acknowledged":true}`))

	case r.Method == http.MethodDelete:
		for _, name := range strings.Split(path, ",") {
			f.deleted = append(f.deleted, name)
			delete(f.mappings, name)
			delete(f.docs, name)
			f.aliased = without(f.aliased, name)
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	}
}

func without(names []string, name string) []string {
	out := names[:0:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func newFakeESIndex(t *testing.T, fake *fakeES) *ElasticsearchIndex {
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewElasticsearchIndex(client, "contract-passages")
}

func teslaEntry(id, text string) Entry {
	return Entry{
		Passage: models.Passage{ID: id, Text: text, Provenance: models.Provenance{CustomerTag: "Tesla", SourceFile: "t.pdf"}},
		Vector:  []float64{1, 0},
	}
}

func TestElasticsearchIndex_Replace(t *testing.T) {
	fake := newFakeES()
	idx := newFakeESIndex(t, fake)

	err := idx.Replace(context.Background(), []Entry{
		teslaEntry("p1", "OTD 98%"),
		{Passage: models.Passage{ID: "p2", Text: "stopwords only"}, Seq: 1, Vector: []float64{0, 0}},
	})
	require.NoError(t, err)

	require.Len(t, fake.aliased, 1)
	physical := fake.aliased[0]
	assert.True(t, strings.HasPrefix(physical, "contract-passages-"))
	props := fake.mappings[physical]["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	vector := props["vector"].(map[string]interface{})
	assert.Equal(t, "dense_vector", vector["type"])
	assert.Equal(t, float64(2), vector["dims"])

	// zero vectors are skipped: one action line plus one document line
	require.Len(t, fake.bulkLines, 2)
	assert.Contains(t, fake.bulkLines[0], `"_index":"`+physical+`"`)
	assert.Contains(t, fake.bulkLines[0], `"_id":"p1"`)
	assert.Contains(t, fake.bulkLines[1], `"customer":"Tesla"`)
	assert.Empty(t, fake.deleted)
}

func TestElasticsearchIndex_ReplaceSwapsAlias(t *testing.T) {
	fake := newFakeES()
	idx := newFakeESIndex(t, fake)
	ctx := context.Background()

	require.NoError(t, idx.Replace(ctx, []Entry{teslaEntry("p1", "OTD 98%")}))
	first := fake.aliased[0]

	require.NoError(t, idx.Replace(ctx, []Entry{teslaEntry("p2", "OTD 97%")}))
	require.Len(t, fake.aliased, 1)
	assert.NotEqual(t, first, fake.aliased[0])
	assert.Equal(t, []string{first}, fake.deleted, "old index dropped after the swap")

	hits, err := idx.Search(ctx, []float64{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p2", hits[0].ID)
}

func TestElasticsearchIndex_FailedBulkKeepsPreviousIndex(t *testing.T) {
	fake := newFakeES()
	idx := newFakeESIndex(t, fake)
	ctx := context.Background()

	require.NoError(t, idx.Replace(ctx, []Entry{teslaEntry("p1", "OTD 98%")}))
	live := fake.aliased[0]

	fake.bulkStatus = http.StatusInternalServerError
	err := idx.Replace(ctx, []Entry{teslaEntry("p2", "OTD 97%")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk index failed")

	assert.Equal(t, []string{live}, fake.aliased)
	require.Len(t, fake.deleted, 1)
	assert.NotEqual(t, live, fake.deleted[0], "only the half-built index is dropped")

	hits, err := idx.Search(ctx, []float64{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p1", hits[0].ID)
}

func TestStore_ElasticsearchFailedRebuildServesOldSnapshot(t *testing.T) {
	fake := newFakeES()
	store := NewStore(embedding.NewTFIDF(0), newFakeESIndex(t, fake), nil, logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := store.Build(ctx, []models.Passage{
		{ID: "tesla-otd", Text: "Tesla OTD target 98%", Provenance: models.Provenance{CustomerTag: "Tesla", SourceFile: "t.pdf"}},
	})
	require.NoError(t, err)

	fake.bulkStatus = http.StatusInternalServerError
	_, err = store.Build(ctx, []models.Passage{
		{ID: "barry-otd", Text: "Barry OTD target 95%", Provenance: models.Provenance{CustomerTag: "Barry", SourceFile: "b.pdf"}},
	})
	require.Error(t, err)

	assert.True(t, store.Ready())
	hits, err := store.Search(ctx, "Tesla OTD target", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "tesla-otd", hits[0].ID)
}

func TestElasticsearchIndex_Clear(t *testing.T) {
	fake := newFakeES()
	idx := newFakeESIndex(t, fake)
	ctx := context.Background()

	require.NoError(t, idx.Clear(ctx), "nothing to clear yet")
	assert.Empty(t, fake.deleted)

	require.NoError(t, idx.Replace(ctx, []Entry{teslaEntry("p1", "OTD 98%")}))
	live := fake.aliased[0]

	require.NoError(t, idx.Clear(ctx))
	assert.Equal(t, []string{live}, fake.deleted)
	assert.Empty(t, fake.aliased)
}

func TestElasticsearchIndex_Search(t *testing.T) {
	fake := newFakeES()
	fake.aliased = []string{"contract-passages-1"}
	fake.searchReply = `{
		"hits": {"hits": [
			{"_score": 1.9, "_source": {"passage_id": "p1", "text": "OTD 98%", "customer": "Tesla", "source_file": "t.pdf", "seq": 0}},
			{"_score": 1.4, "_source": {"passage_id": "p2", "text": "OTD 95%", "customer": "Barry", "source_file": "b.xlsx", "sheet_name": "KPI", "seq": 1}},
			{"_score": 1.0, "_source": {"passage_id": "p3", "text": "unrelated", "customer": "X", "source_file": "x.txt", "seq": 2}}
		]}
	}`
	idx := newFakeESIndex(t, fake)

	hits, err := idx.Search(context.Background(), []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].ID)
	assert.InDelta(t, 0.9, hits[0].Score, 1e-9)
	assert.Equal(t, "KPI", hits[1].SheetName)

	assert.Equal(t, float64(3), fake.searchBody["size"])
	sort := fake.searchBody["sort"].([]interface{})
	require.Len(t, sort, 2)
	assert.Equal(t, map[string]interface{}{"seq": "asc"}, sort[1])
}

func TestElasticsearchIndex_SearchZeroVector(t *testing.T) {
	fake := newFakeES()
	idx := newFakeESIndex(t, fake)

	hits, err := idx.Search(context.Background(), []float64{0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Nil(t, fake.searchBody)
}
