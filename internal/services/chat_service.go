package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/core/pubmed"
	"github.com/markdave123-py/myhealth/internal/models"
)

// ArticleSearcher finds published articles relevant to a question.
type ArticleSearcher interface {
	Search(ctx context.Context, query string) ([]pubmed.Article, error)
}

// ChatAnswer is the reply to a chat question.
type ChatAnswer struct {
	Response string   `json:"response"`
	Articles []string `json:"articles"`
}

const reportChatSystemPrompt = "You are a medical assistant answering only from the given excerpts of the patient's report. " +
	"If the answer is not in the excerpts, say 'I cannot find this in the report.'"

const reportChatTopK = 5

type ChatService struct {
	db       core.DbClient
	llm      core.LLMProvider
	embedder core.EmbeddingProvider
	articles ArticleSearcher
	logger   arbor.ILogger
}

// NewChatService wires chat. embedder may be nil, which disables questions about reports.
func NewChatService(db core.DbClient, llm core.LLMProvider, embedder core.EmbeddingProvider, articles ArticleSearcher, logger arbor.ILogger) *ChatService {
	return &ChatService{db: db, llm: llm, embedder: embedder, articles: articles, logger: logger}
}

// AskHealth answers a general health question using PubMed search results as context.
func (s *ChatService) AskHealth(ctx context.Context, query string) (*ChatAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	found, err := s.articles.Search(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Article search failed, answering without articles")
	}

	urls := make([]string, 0, len(found))
	for _, a := range found {
		urls = append(urls, a.URL)
	}

	answer, err := s.llm.Generate(ctx, "", healthPrompt(query, urls))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &ChatAnswer{Response: answer, Articles: urls}, nil
}

// AskReport answers a question from the indexed chunks of one of owner's reports.
func (s *ChatService) AskReport(ctx context.Context, ownerID, reportID, query string) (*ChatAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if s.embedder == nil {
		return nil, ErrChatUnavailable
	}

	report, err := s.db.GetReport(ctx, ownerID, reportID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if report == nil {
		return nil, core.ErrReportNotFound
	}
	if report.Status != models.ReportStatusReady {
		return nil, ErrReportNotReady
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed query: no vector returned")
	}

	chunks, err := s.db.SearchReportChunks(ctx, reportID, vecs[0], reportChatTopK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	var sb strings.Builder
	for _, ch := range chunks {
		sb.WriteString(ch.Text)
		sb.WriteString("\n---\n")
	}

	answer, err := s.llm.Generate(ctx, reportChatSystemPrompt, "Context:\n"+sb.String()+"\nQuestion: "+query)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &ChatAnswer{Response: answer, Articles: []string{}}, nil
}

func healthPrompt(query string, articleURLs []string) string {
	var sb strings.Builder
	sb.WriteString("You are a health-related chatbot. Your role is to provide relevant information and insights based on scientific articles.")
	sb.WriteString("\n\nInstructions:")
	sb.WriteString("\n1. When a user asks a question, you should use the provided articles to generate a detailed and informative response.")
	sb.WriteString("\n2. Include relevant details from the articles to support your response.")
	sb.WriteString("\n3. If the user query is not clear or doesn't match the content of the articles, ask for clarification.")
	sb.WriteString("\n4. Be concise, informative, and professional.")
	sb.WriteString("\n\nUser Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nArticles:\n")
	sb.WriteString(strings.Join(articleURLs, "\n"))
	sb.WriteString("\n\nGenerate a response based on the above instructions.")
	return sb.String()
}
