package backend

import "fmt"

const analystPromptTemplate = `You are a professional data analyst. Based on the following data context, answer the user's question with insights, patterns, and actionable recommendations.

Data Context:
%s

User Question: %s

Please provide a comprehensive analysis with:
1. Direct answer to the question
2. Key insights from the data
3. Patterns or trends you notice
4. Actionable recommendations
5. Any concerns or limitations

Response:`

const genericPromptTemplate = `You are a professional data analyst. Please answer the following question:

%s

Provide a helpful and insightful response.`

// buildPrompt interpolates the question and data context verbatim. An empty
// context selects the shorter generic-question template.
func buildPrompt(question, dataContext string) string {
	if dataContext != "" {
		return fmt.Sprintf(analystPromptTemplate, dataContext, question)
	}
	return fmt.Sprintf(genericPromptTemplate, question)
}
