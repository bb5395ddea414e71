// Package sentiment classifies reviews through an external LLM and persists
// the structured verdicts.
package sentiment

import "fmt"

// promptTemplate requests a literal list of tuples covering five fixed
// aspects plus an overall judgment. The answer format is load-bearing: the
// parser expects exactly this tuple shape.
const promptTemplate = `
Instructions:
Below is a movie review that I want you to analyze.
For each of the following aspect, you must determine if it is mentioned in the review, and if it is, what is the corresponding sentiment on the following scale: *very negative*, *negative*, *neutral* (including mixed or contradictory sentiments), *positive*, *very positive*.
- *Storytelling* (including characters and their development, narrative progression, plot twists, screenplay, dialogues, overall pacing)
- *Acting performance* (including vocal, musical, danse, or stunt work if applicable)
- *Cinematography and visual style* (including colors and lightening, set design, costumes, makeup, special effects, overall aesthetic of the film)
- *Music and sound design* (including soundtrack and scores)
- *Theme and values* (including the moral or political message, emotional resonance, cultural or societal impact)
Your answer should take the form of a list with each aspect, whether it is mentioned, and the corresponding sentiment (which should be 'NA' if the aspect is not mentioned).
Additionally, I want you to identify the overall sentiment about the movie that the review conveys: is the movie *excellent*, *good despite minor flaws*, *average*, *bad despite some qualities*, *terrible*. This overall sentiment should be appended to the previous list.
You must return this list only, without any additional commentary. Your answer should have the following format (with example values):
 [('Storytelling', 'not mentioned', 'NA'), ('Acting performance', 'mentioned', 'good'), ('Cinematography and visual style', 'mentioned', 'very negative'), ('Music and sound design', 'mentioned', 'very good'), ('Theme and values', 'not mentioned', 'NA'), ('Overall', 'average')]

Now the review:
%s
`

// BuildPrompt assembles the classification prompt for one review.
func BuildPrompt(title, body string) string {
	text := title
	if body != "" {
		if text != "" {
			text += "\n\n"
		}
		text += body
	}
	return fmt.Sprintf(promptTemplate, text)
}
