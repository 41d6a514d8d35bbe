package intent

const (
	menuResponse        = "Our menu features a variety of delicious options! We have appetizers, main courses, desserts, and beverages. Some popular dishes include our signature pasta, grilled salmon, and artisanal pizzas. Would you like me to recommend something based on your preferences?"
	reservationResponse = "I'd be happy to help you make a reservation! You can book a table through our reservations page, or I can guide you through the process. What date and time were you thinking, and how many guests will be joining you?"
	dietaryResponse     = "We have excellent options for dietary restrictions! Our menu includes clearly marked vegan, vegetarian, and gluten-free dishes. Our chefs can also customize many dishes to meet your specific needs. Would you like me to recommend some specific options?"
	hoursResponse       = "We're open Monday-Thursday 11am-10pm, Friday-Saturday 11am-11pm, and Sunday 12pm-9pm. We're located in the heart of downtown. You can find our exact address and directions on our Contact page!"
	orderingResponse    = "You can place orders for both delivery and takeout through our Orders page! We offer online ordering with real-time tracking. Would you like me to help you get started with an order?"
	fallbackResponse    = "That's a great question! I'm here to help you with anything related to SmartBite. I can assist with menu recommendations, reservations, orders, dietary questions, and general information about our restaurant. Is there something specific I can help you with?"
)

// defaultRules is evaluated top to bottom. The order is part of the
// contract: "vegan menu" routes to Menu, not Dietary.
var defaultRules = []Rule{
	{Intent: Menu, Keywords: []string{"menu", "food", "dish"}, Response: menuResponse},
	{Intent: Reservation, Keywords: []string{"reservation", "book", "table"}, Response: reservationResponse},
	{Intent: Dietary, Keywords: []string{"vegan", "vegetarian", "gluten"}, Response: dietaryResponse},
	{Intent: Hours, Keywords: []string{"hours", "open", "location", "address"}, Response: hoursResponse},
	{Intent: Ordering, Keywords: []string{"order", "delivery", "takeout"}, Response: orderingResponse},
}

var defaultClassifier = NewClassifier(defaultRules, fallbackResponse)

// Default returns the process-wide SmartBite rule table.
func Default() *Classifier {
	return defaultClassifier
}

// Classify runs text through the default table.
func Classify(text string) Decision {
	return defaultClassifier.Classify(text)
}
