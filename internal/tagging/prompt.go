package tagging

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Output delimiters, strictest first. The prompt ends with an open strict
// delimiter so the model continues inside it. The few-shot answers use a
// different tag so an echoed prompt never matches either pattern.
const (
	strictOpen  = "<Output_Properties>"
	strictClose = "</Output_Properties>"
	looseOpen   = "<Output>"
	looseClose  = "</Output>"
)

const instructions = `<Task_Context>
You are an expert at tagging tickets with their correct properties.

You will be given:
Ticket information in JSON format (fields: subject, description, email).
A list of the possible ticket property values in JSON format (fields: department, techgroup, category, subcategory, priority).

Assign the most appropriate value for each property, using only the provided ticket information and the possible property values.
If you are unsure or the information is insufficient, set the property to null.
Do NOT invent or guess values outside the provided options.

<VERY IMPORTANT>
Return ONLY the JSON object for the ticket properties. Do NOT include any explanations, extra text, or formatting such as markdown or code blocks.
</VERY IMPORTANT>
</Task_Context>
`

const examples = `<Examples>
Example 1:
<Ticket_Information>
{"subject": "UPT20 (SO-NickScali) : PC assistance Chanel Tolentino", "description": "UPT20 (SO-NickScali) : PC assistance Chanel Tolentino", "email": "chanel.tolentino@company.com"}
</Ticket_Information>
<Possible_Output>
{"department": "Technology Services", "techgroup": "On-Site Support", "category": "Hardware", "subcategory": "Desktop/Laptop Problem", "priority": "P2 - General"}
</Possible_Output>

Example 2:
<Ticket_Information>
{"subject": "PODIUM | VITRO LINK | Alert OSPF Neighbor is Down - VITRO MAKATI PODIUM-S2", "description": "PODIUM | VITRO LINK | Alert OSPF Neighbor is Down - VITRO MAKATI PODIUM-S2", "email": "noc.alerts@company.com"}
</Ticket_Information>
<Possible_Output>
{"department": "Technology Services", "techgroup": "NOC", "category": "Outage", "subcategory": "ISP Outage", "priority": "P1 - Critical"}
</Possible_Output>
</Examples>
`

// ticketInformation is serialized in field order subject, description, email.
type ticketInformation struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Email       string `json:"email"`
}

// BuildPrompt renders the tagging prompt for one ticket. It is deterministic
// and has no side effects.
func BuildPrompt(subject, description, email string) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n")
	b.WriteString(examples)
	b.WriteString("\n<Ticket_Information>\n")
	b.WriteString(serializeTicket(subject, description, email))
	b.WriteString("\n</Ticket_Information>\n")
	b.WriteString(strictOpen)
	b.WriteString("\n")
	return b.String()
}

func serializeTicket(subject, description, email string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a struct of strings cannot fail.
	_ = enc.Encode(ticketInformation{Subject: subject, Description: description, Email: email})
	return strings.TrimSuffix(buf.String(), "\n")
}
