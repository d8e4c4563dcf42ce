/*
Package runner implements the interactive playback loop for Inkwell stories.

It acts as the bridge between a playthrough (inkwell.Runtime) and the outside world.
The runner pulls steps from the story, hands lines and choice sets to a pluggable
IOHandler, reads the player's selection back and optionally saves the state after
every choice so that the session can be resumed later.

# Key Components

  - Runner: The main loop.
  - IOHandler: Decouples how steps are shown and choices are read (terminal, JSON lines).
  - TextHandler: A standard implementation for interactive CLI usage.
  - JSONHandler: A JSON-lines implementation for headless hosts.

# Usage

	rt, err := engine.Start(ctx, "")
	if err != nil {
		log.Fatal(err)
	}

	r := runner.NewRunner(
		runner.WithSession(store, "user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, rt); err != nil {
		log.Fatal(err)
	}
*/
package runner
