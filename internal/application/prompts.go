package application

import (
	"fmt"
	"strings"

	"github.com/bnema/smartani/internal/domain"
)

const (
	recentExchangeLimit    = 3
	recentAnswerLimit      = 200
	priorContextLimit      = 300
	synthesisAbstractLimit = 500

	datasetAcknowledgement = "Understood. I have stored this dataset in working memory. I will answer only from the facts it contains and cite the article titles I used."
	injectedContextAck     = "Understood."

	FallbackDisclaimer = "I could not find this in the local dataset or in the scholarly literature, so the answer below comes from general knowledge. Please verify it with a local agricultural extension officer."
)

const groundingInstructionFmt = `You are an agricultural assistant that answers strictly from the REFERENCE DATASET supplied at the start of this conversation.

Rules:
1. Answer the question directly and concisely.
2. Use only information found in the dataset.
3. Cite the source article title at the end of the answer, for example "(Source: Soil Without Soil)".
4. If the dataset does not contain the answer, reply with exactly %s and nothing else.
5. Do not use markdown formatting.`

func groundingSystemInstruction(token string) string {
	return fmt.Sprintf(groundingInstructionFmt, token)
}

func datasetSeedMessage(dataset string) string {
	return "THIS IS YOUR REFERENCE DATASET:\n\n" + dataset + "\n\nStudy the data above. Do not answer outside of it."
}

func seedHistory(dataset string) []domain.Turn {
	return []domain.Turn{
		{Role: domain.RoleUser, Content: datasetSeedMessage(dataset)},
		{Role: domain.RoleModel, Content: datasetAcknowledgement},
	}
}

func injectedContextMessage(text string) string {
	return "Additional context from the scholarly literature for this conversation:\n\n" + text
}

// groundingPrompt is the stateless variant of the grounding check: dataset,
// recent exchanges and the question in one message.
func groundingPrompt(dataset string, notes []string, recent []domain.Exchange, question string) string {
	var b strings.Builder
	b.WriteString(datasetSeedMessage(dataset))
	for _, note := range notes {
		b.WriteString("\n\n")
		b.WriteString(injectedContextMessage(note))
	}
	b.WriteString(conversationContext(recent))
	b.WriteString("\n\nQUESTION: ")
	b.WriteString(question)
	return b.String()
}

// conversationContext renders at most the last three exchanges with answers
// cut to 200 characters. It returns "" when there is nothing to show.
func conversationContext(recent []domain.Exchange) string {
	if len(recent) == 0 {
		return ""
	}
	if len(recent) > recentExchangeLimit {
		recent = recent[len(recent)-recentExchangeLimit:]
	}

	var b strings.Builder
	b.WriteString("\n\nPREVIOUS CONVERSATION (reference only):\n")
	for i, exchange := range recent {
		fmt.Fprintf(&b, "\n[%d] User asked: %s\n", i+1, exchange.Question)
		fmt.Fprintf(&b, "    You answered: %s\n", truncateWithEllipsis(exchange.Response, recentAnswerLimit))
	}
	b.WriteString("\n(Use this context only when the new question refers back to it.)\n---\n")
	return b.String()
}

const optimizerInstruction = `You turn farmer questions into search keywords for an academic paper search engine.
Reply with one line of English keywords only. Keep every number, quantity and unit from the question. Do not add explanations or quotes.`

func optimizerPrompt(question string, prior *domain.FirstTurn) string {
	var b strings.Builder
	if prior != nil {
		b.WriteString("Earlier in this conversation:\n")
		fmt.Fprintf(&b, "Q: %s\n", truncate(prior.Question, priorContextLimit))
		fmt.Fprintf(&b, "A: %s\n\n", truncate(prior.Answer, priorContextLimit))
		b.WriteString("Use that context only if the new question refers back to it.\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

const synthesisInstruction = `You are a friendly agricultural assistant. Answer the farmer's latest question using the academic references provided.
Write plain conversational paragraphs without markdown. Mention the references naturally and focus on practical solutions.`

func synthesisPrompt(question string, papers []domain.Paper, recent []domain.Exchange) string {
	var b strings.Builder
	b.WriteString(conversationContext(recent))
	b.WriteString("\n\nACADEMIC REFERENCES:\n")
	for i, paper := range papers {
		fmt.Fprintf(&b, "\n[Reference %d]\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", strings.TrimSpace(paper.Title))
		fmt.Fprintf(&b, "Authors: %s\n", paper.AuthorLabel())
		fmt.Fprintf(&b, "Year: %s\n", paper.YearLabel())
		if paper.Venue != nil && strings.TrimSpace(*paper.Venue) != "" {
			fmt.Fprintf(&b, "Venue: %s\n", strings.TrimSpace(*paper.Venue))
		}
		if paper.Abstract != nil && strings.TrimSpace(*paper.Abstract) != "" {
			fmt.Fprintf(&b, "Abstract: %s...\n", truncate(strings.TrimSpace(*paper.Abstract), synthesisAbstractLimit))
		}
		fmt.Fprintf(&b, "Citations: %d\n", paper.CitationCount)
	}
	b.WriteString("\nNEW QUESTION (answer this one): ")
	b.WriteString(question)
	return b.String()
}

const fallbackInstruction = `You are a friendly agricultural assistant. Answer the farmer's question from general agricultural knowledge.
Be practical and concise and do not use markdown.`

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func truncateWithEllipsis(s string, limit int) string {
	if len([]rune(s)) <= limit {
		return s
	}
	return truncate(s, limit) + "..."
}
