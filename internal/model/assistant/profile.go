package assistant

// Profile captures the persona the chat widget presents.
type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Greeting    string `json:"greeting"`
	Language    string `json:"language"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// DefaultID is used when a widget is opened without choosing a profile.
const DefaultID = "smartbite"

// Seed provides the profiles shipped with the restaurant site.
func Seed() []Profile {
	return []Profile{
		{
			ID:          DefaultID,
			Name:        "SmartBite Assistant",
			Greeting:    "Hi! I'm your SmartBite AI assistant. I can help you with menu recommendations, reservations, orders, and answer any questions about our restaurant. How can I assist you today?",
			Language:    "en-US",
			Status:      "Online",
			Description: "Answers menu, reservation, dietary, opening hours and ordering questions.",
		},
	}
}
