package passages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"contract-qa/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// ElasticsearchIndex stores passages with a dense_vector field and ranks
// them with a cosineSimilarity script_score query. Searches go through an
// alias; every build loads a fresh physical index (the vector dimension can
// change between builds) and then moves the alias to it in one request, so
// a failed build leaves the previous index serving.
type ElasticsearchIndex struct {
	client *elasticsearch.Client
	alias  string
}

func NewElasticsearchIndex(client *elasticsearch.Client, alias string) *ElasticsearchIndex {
	return &ElasticsearchIndex{client: client, alias: alias}
}

func (e *ElasticsearchIndex) Name() string { return "elasticsearch" }

type esDocument struct {
	PassageID  string    `json:"passage_id"`
	Text       string    `json:"text"`
	Customer   string    `json:"customer"`
	SourceFile string    `json:"source_file"`
	SheetName  string    `json:"sheet_name,omitempty"`
	Seq        int       `json:"seq"`
	Vector     []float64 `json:"vector"`
}

func (e *ElasticsearchIndex) Replace(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return e.Clear(ctx)
	}

	target := e.alias + "-" + uuid.NewString()
	if err := e.createIndex(ctx, target, len(entries[0].Vector)); err != nil {
		return err
	}
	if err := e.load(ctx, target, entries); err != nil {
		e.dropIndices(ctx, []string{target})
		return err
	}

	previous, err := e.aliasedIndices(ctx)
	if err != nil {
		e.dropIndices(ctx, []string{target})
		return err
	}
	if err := e.swapAlias(ctx, previous, target); err != nil {
		e.dropIndices(ctx, []string{target})
		return err
	}
	// the alias already serves target; a leftover old index only costs disk
	e.dropIndices(ctx, previous)
	return nil
}

func (e *ElasticsearchIndex) createIndex(ctx context.Context, name string, dims int) error {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"passage_id":  map[string]interface{}{"type": "keyword"},
				"text":        map[string]interface{}{"type": "text"},
				"customer":    map[string]interface{}{"type": "keyword"},
				"source_file": map[string]interface{}{"type": "keyword"},
				"sheet_name":  map[string]interface{}{"type": "keyword"},
				"seq":         map[string]interface{}{"type": "integer"},
				// not indexed for kNN; script_score reads it from doc values
				"vector": map[string]interface{}{"type": "dense_vector", "dims": dims, "index": false},
			},
		},
	}
	body, _ := json.Marshal(mapping)

	res, err := e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index failed: %s", res.Status())
	}
	return nil
}

func (e *ElasticsearchIndex) load(ctx context.Context, index string, entries []Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if isZero(entry.Vector) {
			continue
		}
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": index, "_id": entry.ID}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(esDocument{
			PassageID:  entry.ID,
			Text:       entry.Text,
			Customer:   entry.CustomerTag,
			SourceFile: entry.SourceFile,
			SheetName:  entry.SheetName,
			Seq:        entry.Seq,
			Vector:     entry.Vector,
		}); err != nil {
			return err
		}
	}
	if buf.Len() == 0 {
		return nil
	}

	bulk, err := e.client.Bulk(
		&buf,
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer bulk.Body.Close()
	if bulk.IsError() {
		return fmt.Errorf("bulk index failed: %s", bulk.Status())
	}

	var reply struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(bulk.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decode bulk reply: %w", err)
	}
	if reply.Errors {
		return fmt.Errorf("bulk index reported item errors")
	}
	return nil
}

// aliasedIndices lists the physical indices behind the alias, none when the
// alias does not exist yet.
func (e *ElasticsearchIndex) aliasedIndices(ctx context.Context) ([]string, error) {
	res, err := e.client.Indices.GetAlias(
		e.client.Indices.GetAlias.WithName(e.alias),
		e.client.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("get alias: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("get alias failed: %s", res.Status())
	}

	var reply map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode alias reply: %w", err)
	}
	indices := make([]string, 0, len(reply))
	for name := range reply {
		indices = append(indices, name)
	}
	sort.Strings(indices)
	return indices, nil
}

func (e *ElasticsearchIndex) swapAlias(ctx context.Context, previous []string, target string) error {
	actions := make([]interface{}, 0, len(previous)+1)
	for _, name := range previous {
		actions = append(actions, map[string]interface{}{"remove": map[string]interface{}{"index": name, "alias": e.alias}})
	}
	actions = append(actions, map[string]interface{}{"add": map[string]interface{}{"index": target, "alias": e.alias}})
	body, _ := json.Marshal(map[string]interface{}{"actions": actions})

	res, err := e.client.Indices.UpdateAliases(
		bytes.NewReader(body),
		e.client.Indices.UpdateAliases.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("update aliases: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("update aliases failed: %s", res.Status())
	}
	return nil
}

// dropIndices is best effort: it runs after the outcome of a build is
// already decided.
func (e *ElasticsearchIndex) dropIndices(ctx context.Context, names []string) {
	if len(names) == 0 {
		return
	}
	res, err := e.client.Indices.Delete(
		names,
		e.client.Indices.Delete.WithContext(ctx),
		e.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err == nil {
		res.Body.Close()
	}
}

// Clear removes every index behind the alias, and with them the alias.
func (e *ElasticsearchIndex) Clear(ctx context.Context) error {
	indices, err := e.aliasedIndices(ctx)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		return nil
	}
	res, err := e.client.Indices.Delete(
		indices,
		e.client.Indices.Delete.WithContext(ctx),
		e.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete index failed: %s", res.Status())
	}
	return nil
}

func (e *ElasticsearchIndex) Search(ctx context.Context, vector []float64, k int) ([]models.ScoredPassage, error) {
	// cosineSimilarity rejects a zero query vector
	if isZero(vector) {
		return nil, nil
	}

	query := map[string]interface{}{
		"size":    k,
		"_source": []string{"passage_id", "text", "customer", "source_file", "sheet_name", "seq"},
		"query": map[string]interface{}{
			"script_score": map[string]interface{}{
				"query": map[string]interface{}{"match_all": map[string]interface{}{}},
				"script": map[string]interface{}{
					"source": "cosineSimilarity(params.query_vector, 'vector') + 1.0",
					"params": map[string]interface{}{"query_vector": vector},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"_score": "desc"},
			map[string]interface{}{"seq": "asc"},
		},
		"track_scores": true,
	}
	body, _ := json.Marshal(query)

	req := esapi.SearchRequest{
		Index: []string{e.alias},
		Body:  strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.String())
	}

	var reply struct {
		Hits struct {
			Hits []struct {
				Score  float64    `json:"_score"`
				Source esDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return nil, err
	}

	out := make([]models.ScoredPassage, 0, len(reply.Hits.Hits))
	for _, hit := range reply.Hits.Hits {
		score := hit.Score - 1.0
		if score <= 0 {
			continue
		}
		src := hit.Source
		out = append(out, models.ScoredPassage{
			Passage: models.Passage{
				ID:   src.PassageID,
				Text: src.Text,
				Provenance: models.Provenance{
					CustomerTag: src.Customer,
					SourceFile:  src.SourceFile,
					SheetName:   src.SheetName,
				},
			},
			Score: score,
		})
	}
	return out, nil
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
