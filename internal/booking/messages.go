package booking

import (
	"fmt"
	"strings"
)

const (
	promptOwner    = "I'd be happy to help you book an appointment! First, what's your name?"
	promptPhone    = "What's the best phone number to reach you?"
	invalidPhone   = "That doesn't look like a valid phone number. Please enter 10 to 15 digits, for example 555-123-4567 or +1 555 123 4567."
	askYesNo       = "Please reply \"yes\" to confirm this appointment request or \"no\" to cancel it."
	cancelledReply = "No problem, I've cancelled this booking request. Is there anything else I can help you with?"
)

func promptPet(owner string) string {
	return fmt.Sprintf("Thanks, %s! What's your pet's name?", owner)
}

func promptDateTime(pet string) string {
	return fmt.Sprintf("When would you like to bring %s in? Let me know your preferred date and time.", pet)
}

func repeatPrompt(step Step, d Data) string {
	switch step {
	case StepAskingOwner:
		return promptOwner
	case StepAskingPet:
		return promptPet(d.OwnerName)
	case StepAskingPhone:
		return promptPhone
	case StepAskingDateTime:
		return promptDateTime(d.PetName)
	default:
		return askYesNo
	}
}

// Summary renders the collected fields as a human-readable block.
func Summary(d Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Owner: %s\n", d.OwnerName)
	fmt.Fprintf(&b, "Pet: %s\n", d.PetName)
	fmt.Fprintf(&b, "Phone: %s\n", d.Phone)
	fmt.Fprintf(&b, "Preferred time: %s", d.PreferredDateTime)
	return b.String()
}

func confirmationPrompt(d Data) string {
	return "Please confirm your appointment details:\n\n" + Summary(d) + "\n\nIs everything correct? (yes/no)"
}

func successReply(d Data) string {
	return "Your appointment request has been submitted!\n\n" + Summary(d) +
		fmt.Sprintf("\n\nOur team will contact you at %s to confirm the exact time for %s's visit.", d.Phone, d.PetName)
}
