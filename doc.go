/*
Package inkwell is an embeddable engine for branching interactive narratives written in a
small Ink-style markup.

A story is a plain-text document made of knots (named sections), stitches (sub-sections),
text lines, choices, gathers and diverts. The engine parses it once into an immutable story
graph and then drives any number of independent playthroughs over it. Each playthrough is a
pull-based state machine: the host asks for the next step and gets either a line of text, a
set of choices, or the end of the story.

# Concept

The parsed story (Logic) is separated from the playthrough state (State). The State is a
plain JSON-serialisable value holding the location, visit counts, alternative counters and
consumed choices, so a playthrough can be saved, moved across processes and resumed. The
host owns all I/O: it decides how lines are printed and how a choice is picked.

# Usage

	eng, err := inkwell.New(source)
	if err != nil {
		log.Fatal(err)
	}

	rt, err := eng.Start(ctx, "")
	if err != nil {
		log.Fatal(err)
	}

	for {
		step, err := rt.Advance(ctx)
		if err != nil {
			log.Fatal(err)
		}
		switch step.Kind {
		case domain.StepLine:
			fmt.Println(step.Line.Text)
		case domain.StepChoices:
			// Show step.Choices, read the player's pick.
			if err := rt.Select(ctx, 0); err != nil {
				log.Fatal(err)
			}
		case domain.StepEnded:
			return
		}
	}
*/
package inkwell
