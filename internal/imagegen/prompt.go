package imagegen

import "fmt"

const promptTemplate = "Create a powerful and emotional climate change awareness image depicting the impact of %s in %s. " +
	"Show realistic consequences and environmental effects, focusing on human impact and urgency for action. " +
	"Style: photorealistic, dramatic lighting, emotional impact"

// BuildPrompt returns the text-to-image prompt for an issue in a city.
// The result depends only on its arguments.
func BuildPrompt(city, issue string) string {
	return fmt.Sprintf(promptTemplate, issue, city)
}
