package assistant

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/rosacash/internal/billing"
)

// contextTransactions is how many transactions the model sees in the data block.
const contextTransactions = 100

// NoDataReply is sent without calling the model when the user has no data yet.
const NoDataReply = "Não encontrei dados financeiros registrados ainda. Adicione transações, recorrências ou cartões para que eu possa te ajudar com análises."

// FallbackReply is sent when the model gives no usable answer.
const FallbackReply = "Desculpe, não consegui processar sua pergunta. Tente novamente."

func planSystemPrompt(today civil.Date) string {
	return "Você é o assistente financeiro pessoal do app RosaCash.\n" +
		"A data atual é: " + today.String() + ".\n\n" +
		"Tarefa:\n" +
		"- Escolha UMA ferramenta para responder à pergunta do usuário, ou nenhuma.\n" +
		"- Responda SOMENTE com JSON estrito, sem Markdown e sem texto extra.\n\n" +
		"Ferramentas disponíveis:\n" +
		"- \"" + ToolCardBill + "\": fatura de um cartão em um mês. args: {\"cardName\": string, \"month\": 1-12, \"year\": número}\n" +
		"- \"" + ToolProjected + "\": saldo projetado em uma data futura. args: {\"targetDate\": \"YYYY-MM-DD\"}\n" +
		"- \"" + ToolExpenses + "\": total de despesas do mês com recorrências. args: {\"month\": 1-12, \"year\": número}\n" +
		"- \"" + ToolBiggestExpense + "\": maior despesa do mês. args: {\"month\": 1-12, \"year\": número}\n" +
		"- \"" + ToolSummary + "\": resumo financeiro do mês. args: {\"month\": 1-12, \"year\": número}\n\n" +
		"Formato: {\"tool\": \"<nome>\", \"args\": {...}}\n" +
		"Se nenhuma ferramenta servir, responda {\"tool\": \"" + ToolNone + "\"}.\n" +
		"A saída deve começar com \"{\" e terminar com \"}\".\n"
}

func answerSystemPrompt(today civil.Date) string {
	return "Você é um assistente financeiro pessoal amigável e preciso chamado RosaCash.\n" +
		"Responda sempre em português brasileiro, de forma clara e objetiva.\n" +
		"NUNCA invente números. Use apenas os dados fornecidos.\n" +
		"Se não houver dados suficientes para responder, diga isso educadamente.\n" +
		"A data atual é: " + today.String() + ".\n" +
		"Quando apresentar valores monetários, use o formato R$ X.XXX,XX.\n"
}

// buildContext renders the user's data as the block the model reads.
func buildContext(snap billing.Snapshot, today civil.Date) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hoje: %s\n\n", today)

	b.WriteString("TRANSAÇÕES (últimas 100):\n")
	txs := latestTransactions(snap.Transactions, contextTransactions)
	if len(txs) == 0 {
		b.WriteString("Nenhuma\n")
	}
	for _, t := range txs {
		fmt.Fprintf(&b, "[%s] %s | %s | R$%s | cat:%s", t.Date, t.Type, t.Description, t.Value.StringFixed(2), t.Category)
		if t.CardID != "" {
			fmt.Fprintf(&b, " | card:%s", t.CardID)
		}
		if t.IsPaid {
			b.WriteString(" | pago")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRECORRÊNCIAS MENSAIS:\n")
	if len(snap.Rules) == 0 {
		b.WriteString("Nenhuma\n")
	}
	for _, r := range snap.Rules {
		fmt.Fprintf(&b, "dia %d | %s | %s | R$%s | cat:%s\n", r.DayOfMonth, r.Type, r.Description, r.Value.StringFixed(2), r.Category)
	}

	b.WriteString("\nCARTÕES DE CRÉDITO:\n")
	if len(snap.Cards) == 0 {
		b.WriteString("Nenhum\n")
	}
	for _, c := range snap.Cards {
		fmt.Fprintf(&b, "id:%s | nome:%s | fechamento:dia %d | vencimento:dia %d\n", c.ID, c.Name, c.ClosingDay, c.DueDay)
	}

	return b.String()
}

// latestTransactions returns up to n non-virtual transactions, newest first.
func latestTransactions(txs []billing.Transaction, n int) []billing.Transaction {
	out := make([]billing.Transaction, 0, n)
	for i := len(txs) - 1; i >= 0 && len(out) < n; i-- {
		if !txs[i].IsVirtual {
			out = append(out, txs[i])
		}
	}
	return out
}

func categorizePrompt(description string, categories []string, history []billing.Transaction) string {
	var b strings.Builder
	b.WriteString("Você é um especialista em categorizar transações financeiras.\n")
	b.WriteString("Sugira a categoria e a subcategoria mais adequadas para a nova transação.\n\n")
	fmt.Fprintf(&b, "Descrição da transação: %s\n\n", description)

	if len(categories) > 0 {
		fmt.Fprintf(&b, "Categorias disponíveis: %s\n\n", strings.Join(categories, ", "))
	}

	if len(history) > 0 {
		b.WriteString("Transações passadas parecidas:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "- %s | %s | %s\n", t.Description, t.Category, t.Subcategory)
		}
		b.WriteString("\n")
	}

	b.WriteString("Se nenhuma subcategoria da lista servir, sugira uma nova que descreva bem a transação.\n")
	b.WriteString("Responda SOMENTE com JSON estrito: {\"category\": string, \"subcategory\": string}\n")
	return b.String()
}
