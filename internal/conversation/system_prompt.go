package conversation

import (
	"fmt"
	"strings"
)

// appointmentMarker is the sentinel the model appends when the visitor wants
// to book. It never leaves this package.
const appointmentMarker = "[APPOINTMENT_INTENT]"

// OffTopicReply is the refusal the model is told to give for non-veterinary
// questions.
const OffTopicReply = "I'm your veterinary assistant and can only help with pet health and care questions. Is there anything about your pet's health I can help you with?"

// markerOnlyAnswer replaces a completion that held nothing but the sentinel.
const markerOnlyAnswer = "I'd be happy to help you schedule a veterinary appointment!"

const baseSystemPrompt = `You are a friendly virtual veterinary assistant for %s, a veterinary clinic.
Answer ONLY questions about veterinary topics: pet care and wellness, vaccination schedules,
diet and nutrition, common illnesses and symptoms, preventive care, first aid for pets and
pet behaviour. Keep answers clear and brief (three short paragraphs at most).
If a question is not about veterinary topics (weather, politics, general knowledge, coding and
the like), politely decline with: "` + OffTopicReply + `"
You are not a veterinarian and cannot diagnose. Always recommend seeing a veterinarian in person
for serious health concerns. For anything urgent (trouble breathing, seizures, suspected
poisoning, heavy bleeding, collapse), tell the owner to contact the clinic or an emergency vet
immediately.
Never give specific medication dosages; defer to a veterinarian. Never invent prices or
opening hours.
If the user wants to book, schedule or otherwise arrange a visit, end your reply with the exact
token ` + appointmentMarker + ` on its own line. Do not mention the token otherwise.`

// BuildSystemPrompt renders the assistant persona, adding caller context when known.
func BuildSystemPrompt(clinicName string, c Context) string {
	if strings.TrimSpace(clinicName) == "" {
		clinicName = "the clinic"
	}
	var b strings.Builder
	fmt.Fprintf(&b, baseSystemPrompt, clinicName)

	if c.DisplayName != "" || c.PetName != "" {
		b.WriteString("\n\nAbout this visitor:")
		if c.DisplayName != "" {
			fmt.Fprintf(&b, "\n- Name: %s", c.DisplayName)
		}
		if c.PetName != "" {
			fmt.Fprintf(&b, "\n- Pet: %s", c.PetName)
		}
	}
	return b.String()
}

// extractMarker strips every occurrence of the sentinel and reports whether
// one was present.
func extractMarker(text string) (string, bool) {
	if !strings.Contains(text, appointmentMarker) {
		return strings.TrimSpace(text), false
	}
	return strings.TrimSpace(strings.ReplaceAll(text, appointmentMarker, "")), true
}
