// Package viz is the terminal live view of a particle model.
//
// [Live] is a Bubble Tea model that draws the model through a
// [transform.Transform] onto a braille [Canvas] and refreshes it from the
// engine on a timer.
//
// # Key Bindings
//
//	Space   - Start/stop the engine
//	Arrows  - Pan
//	+ / -   - Zoom about the canvas center
//	[ / ]   - Rotate (3D)
//	Tab     - Select the next particle alone
//	A / Esc - Select all / clear the selection
//	P / U   - Pin / unpin the selection
//	Shift+L - Link every pair in the selection
//	Shift+U - Unlink every pair in the selection
//	HJKL    - Drag the selection
//	Enter   - Drop dragged particles that are not pinned
//	R       - Randomize positions (stopped only)
//	1-9     - Choose a parameter
//	< / >   - Step the parameter along its slider
//	T       - Cycle color themes
//	Q       - Quit
//
// # Mouse
//
// Pressing on a particle grabs it, or the whole selection when it is
// part of it, and releasing lets go of everything that is not pinned.
// Pressing on empty space pans. With Ctrl or Alt held a press toggles the
// particle under the pointer, or drags out a rectangle whose contents join
// the selection. In 3D the rectangle selects through all depths. The wheel
// zooms about the pointer.
package viz
