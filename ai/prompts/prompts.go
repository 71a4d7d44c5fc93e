// Package prompts holds the prompt templates for every research phase.
// Templates are plain string builders; the engine fills them and the
// gateway sends them verbatim.
package prompts

import (
	"fmt"
	"strings"
	"time"
)

// currentDate is injected into templates so search and synthesis stay
// anchored to "now".
func currentDate() string {
	return time.Now().Format("January 2, 2006")
}

// TaskAnalysis builds the classification prompt. The model must answer with
// a JSON object carrying task_type, complexity, requires_search,
// requires_multiple_rounds, estimated_steps, estimated_time, and reasoning.
func TaskAnalysis(userQuery string) string {
	return fmt.Sprintf(`You are a professional task analysis expert. Analyze the user's query and determine the most suitable task type and workflow.

Current date: %s
User query: %s

Instructions:
- Analyze the query to determine if it needs deep research, simple Q&A, coding help, data analysis, or document writing
- Consider complexity and time requirements
- Generate appropriate workflow steps

Output Format:
- Format your response as a JSON object with these exact keys:

Example:
`+"```json"+`
{
    "task_type": "Deep Research",
    "complexity": "Medium",
    "requires_search": true,
    "requires_multiple_rounds": true,
    "estimated_steps": 5,
    "estimated_time": "3-8 minutes",
    "reasoning": "Query requires comprehensive research and analysis of current trends"
}
`+"```"+`

Task Types:
- "Deep Research": For trends, analysis, market research, detailed studies
- "Q&A System": For simple, direct questions
- "Code Generation": For programming help and technical implementation
- "Data Analysis": For data processing and statistical analysis
- "Document Writing": For creating reports and documents
- "Comprehensive Task": For complex multi-faceted requests

Context: %s`, currentDate(), userQuery, userQuery)
}

// QueryGeneration builds the search-query generation prompt. The model must
// answer with a JSON object carrying rationale and a query list.
func QueryGeneration(userQuery string, numQueries int) string {
	return fmt.Sprintf(`Your goal is to generate sophisticated and diverse web search queries for comprehensive research on the given topic.

Instructions:
- Generate %d diverse search queries that focus on different aspects of the topic
- Each query should be specific and targeted
- Queries should ensure current information is gathered. The current date is %s
- Use English for better search results
- Don't generate duplicate or overly similar queries

Format:
- Format your response as a JSON object with these exact keys:
   - "rationale": Brief explanation of why these queries cover the topic comprehensively
   - "query": A list of %d search queries

Example:

Topic: AI trends 2025 analysis
`+"```json"+`
{
    "rationale": "These queries target different aspects: market data and forecasts, specific technology developments, and industry impact analysis to provide comprehensive coverage of AI trends.",
    "query": ["AI market size growth forecast 2025", "emerging AI technologies 2025", "AI industry impact trends 2025"]
}
`+"```"+`

Context: %s`, numQueries, currentDate(), numQueries, userQuery)
}

// Reflection builds the sufficiency-analysis prompt over the evidence
// gathered so far. The model must answer with a JSON object carrying
// is_sufficient, knowledge_gap, and follow_up_queries.
func Reflection(userQuery string, summaries []string) string {
	resultsText := strings.Join(summaries, "\n\n---\n\n")

	return fmt.Sprintf(`You are an expert research assistant analyzing search results about "%s".

Instructions:
- Identify knowledge gaps or areas that need deeper exploration
- If summaries are sufficient to answer the user's question, don't generate follow-up queries
- If there are knowledge gaps, generate specific follow-up queries
- Focus on missing details, emerging trends, or technical specifics not fully covered

Requirements:
- Ensure follow-up queries are self-contained and include necessary context for web search

Output Format:
- Format your response as a JSON object with these exact keys:
   - "is_sufficient": true or false
   - "knowledge_gap": Describe what information is missing or needs clarification
   - "follow_up_queries": Write specific questions to address gaps

Example:
`+"```json"+`
{
    "is_sufficient": false,
    "knowledge_gap": "Missing specific market size data and growth projections for 2025",
    "follow_up_queries": ["AI market size forecast 2025 specific numbers", "AI growth rate projections 2025 statistics"]
}
`+"```"+`

Summaries:
%s`, userQuery, resultsText)
}

// SupplementaryQueryGeneration builds the follow-up query prompt used when
// a reflection names a gap but no queries. The model answers with one query
// per line, no JSON.
func SupplementaryQueryGeneration(userQuery string, previous []string, numQueries int) string {
	return fmt.Sprintf(`Based on the user question: %s

Existing search results:
%s

The analysis shows the information is insufficient. Generate %d supplementary search queries to fill the gaps.
The queries should:
1. Complement the existing results without duplicating them
2. Target the specific information gaps
3. Use different keywords and angles

Return the query list directly, one query per line.`, userQuery, strings.Join(previous, "\n\n"), numQueries)
}

// AnswerSynthesis builds the final-answer prompt. Every factual claim must
// carry an inline [source](url) citation, and the answer must match the
// language of the user's question.
func AnswerSynthesis(userQuery string, summaries []string) string {
	resultsText := strings.Join(summaries, "\n\n---\n\n")

	return fmt.Sprintf(`Generate a high-quality answer to the user's question based on the provided search results.

Instructions:
- The current date is %s
- Generate a comprehensive answer based on the search results
- **CRITICAL**: When you mention information from the search results, you MUST insert inline citations using markdown link format: [source_name](url)
- Parse the "Citations:" sections from each summary and use those exact URLs for linking
- Detect the language of the user's question and respond in the SAME language
- Structure the answer clearly with appropriate sections and formatting

Citation Format Examples:
- Instead of writing "AI market will grow", write "AI market will grow [bondcap](https://bondcap.com/article-url)"
- Instead of writing "according to research", write "according to research [zdnet](https://zdnet.com/article-url)"

User Context:
- %s

Search Results with Citations:
%s

Remember: Every factual claim should include a clickable citation link in [text](url) format using the URLs provided in the Citations sections.`, currentDate(), userQuery, resultsText)
}

// SearchSummary formats one search result as a summary block for the
// reflection and synthesis prompts, appending its citation list.
func SearchSummary(query, content string, citations []string) string {
	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(content)
	if len(citations) > 0 {
		b.WriteString("\n\nCitations:\n")
		for _, c := range citations {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}
	return b.String()
}
