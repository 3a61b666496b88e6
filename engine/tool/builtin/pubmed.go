package builtin

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/engine/schema"
	"github.com/quillflow/quillflow/engine/tool"
	"github.com/quillflow/quillflow/pkg/logger"
)

const (
	pubmedBaseURL    = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	pubmedDB         = "pubmed"
	pubmedMaxDefault = 10
)

// PubMedSearch queries the NCBI E-utilities API: esearch for matching IDs,
// then efetch for article details.
type PubMedSearch struct {
	client *resty.Client
	apiKey string
}

func NewPubMedSearch(client *resty.Client, apiKey string) *PubMedSearch {
	if client == nil {
		client = resty.New()
	}
	if client.BaseURL == "" {
		client.SetBaseURL(pubmedBaseURL)
	}
	return &PubMedSearch{client: client, apiKey: apiKey}
}

func (p *PubMedSearch) Config() *tool.Config {
	return &tool.Config{
		ID:          core.ID("builtin-pubmed-search"),
		Name:        "pubmed_search",
		Description: "Searches PubMed for articles matching a query",
		Type:        tool.TypeSearch,
		Handler:     "pubmed_search",
		Signature: &tool.Signature{
			Parameters: []tool.Parameter{
				{Name: "query", Required: true, Schema: &schema.ValueSchema{Type: schema.TypeString}},
				{Name: "max_results", Schema: &schema.ValueSchema{Type: schema.TypeNumber}},
			},
			Outputs: []tool.OutputField{
				{Name: "articles", Schema: &schema.ValueSchema{Type: schema.TypeObject, IsArray: true}},
			},
		},
	}
}

func (p *PubMedSearch) Invoke(ctx context.Context, input core.Input) (core.Output, error) {
	log := logger.FromContext(ctx)
	query := prompt.Stringify(input["query"])
	maxResults := pubmedMaxDefault
	if n, ok := input["max_results"].(float64); ok && n > 0 {
		maxResults = int(n)
	}

	ids, err := p.searchIDs(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching pubmed: %w", err)
	}
	log.Debug("pubmed search matched", "query", query, "ids", len(ids))
	if len(ids) == 0 {
		return core.Output{"articles": []any{}}, nil
	}

	articles, err := p.fetchArticles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching pubmed articles: %w", err)
	}
	return core.Output{"articles": articles}, nil
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (p *PubMedSearch) searchIDs(ctx context.Context, query string, maxResults int) ([]string, error) {
	var parsed esearchResponse
	req := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"db":      pubmedDB,
			"term":    query,
			"retmax":  fmt.Sprintf("%d", maxResults),
			"retmode": "json",
			"sort":    "relevance",
		}).
		SetResult(&parsed)
	if p.apiKey != "" {
		req.SetQueryParam("api_key", p.apiKey)
	}
	resp, err := req.Get("/esearch.fcgi")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("pubmed esearch returned %s", resp.Status())
	}
	return parsed.Result.IDList, nil
}

type efetchResponse struct {
	Articles []struct {
		Citation struct {
			PMID    string `xml:"PMID"`
			Article struct {
				Title    string `xml:"ArticleTitle"`
				Abstract struct {
					Text []string `xml:"AbstractText"`
				} `xml:"Abstract"`
				Journal struct {
					Title   string `xml:"Title"`
					PubDate struct {
						Year  string `xml:"Year"`
						Month string `xml:"Month"`
						Day   string `xml:"Day"`
					} `xml:"JournalIssue>PubDate"`
				} `xml:"Journal"`
			} `xml:"Article"`
		} `xml:"MedlineCitation"`
	} `xml:"PubmedArticle"`
}

func (p *PubMedSearch) fetchArticles(ctx context.Context, ids []string) ([]any, error) {
	req := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"db":      pubmedDB,
			"id":      strings.Join(ids, ","),
			"retmode": "xml",
		})
	if p.apiKey != "" {
		req.SetQueryParam("api_key", p.apiKey)
	}
	resp, err := req.Get("/efetch.fcgi")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("pubmed efetch returned %s", resp.Status())
	}
	var parsed efetchResponse
	if err := xml.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}

	articles := make([]any, 0, len(parsed.Articles))
	for _, entry := range parsed.Articles {
		citation := entry.Citation
		article := map[string]any{
			"id":       citation.PMID,
			"title":    citation.Article.Title,
			"abstract": strings.Join(citation.Article.Abstract.Text, "\n"),
			"journal":  citation.Article.Journal.Title,
		}
		if citation.PMID != "" {
			article["url"] = fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", citation.PMID)
		}
		if date := formatPubDate(
			citation.Article.Journal.PubDate.Year,
			citation.Article.Journal.PubDate.Month,
			citation.Article.Journal.PubDate.Day,
		); date != "" {
			article["publication_date"] = date
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func formatPubDate(year, month, day string) string {
	var parts []string
	for _, part := range []string{year, month, day} {
		if part == "" {
			break
		}
		if len(part) == 1 {
			part = "0" + part
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "-")
}
