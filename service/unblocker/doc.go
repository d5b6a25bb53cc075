// Package unblocker runs the unblocking loop. Blocked processes that already
// hold their resource return to Ready after a short wait; the others try
// their resource once per tick and stay Blocked while it is busy.
package unblocker
