package contractqa

import "sort"

// QuickActions maps an action name to the fixed question it asks.
var QuickActions = map[string]string{
	"key-terms":     "Identify and list all key terms, definitions, and important clauses from the uploaded contracts.",
	"risks":         "Analyze the uploaded contracts and identify all potential risks, liabilities, and concerning clauses.",
	"dates":         "Extract and list all important dates, deadlines, and time-related clauses from the uploaded contracts.",
	"payment-terms": "Analyze and summarize all payment terms, amounts, conditions, and financial obligations from the uploaded contracts.",
}

// QuickActionNames returns the action names in stable order.
func QuickActionNames() []string {
	names := make([]string, 0, len(QuickActions))
	for name := range QuickActions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const (
	summarySamplePassages = 20
	summarySampleChars    = 8000
	summarizeAllPrefix    = "Please provide a comprehensive summary of all the uploaded contracts based on this sample: "
)
