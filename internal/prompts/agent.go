package prompts

import "fmt"

// EmptyResponseNudge is injected when the model returns no content after
// executing tool calls. It gives the model one more chance to produce a
// user-visible response.
const EmptyResponseNudge = "You executed tool calls but did not provide a response to the user. Please respond now."

// EmptyResponseFallback is returned to the user when the model fails to
// produce content even after being nudged.
const EmptyResponseFallback = "Sorry, I am unable to process that scheduling request right now."

// LoopBudgetFallback is returned when the agent exhausts its iteration
// budget without composing a final answer.
const LoopBudgetFallback = "I wasn't able to finish that request. The calendar may have been partially modified, so please check your schedule and try again."

// swapInstructionTemplate steers the model into the swap fallback after a
// failed update. The format verb is the original event's ID.
const swapInstructionTemplate = `The 'update_event' call failed. Apply the Swap Method now:
1. Create a NEW event with 'create_event' carrying the full corrected details (the changed fields plus every unchanged field from the earlier lookup).
2. Delete the OLD event with 'delete_event' using EVENT_ID '%s'.
Do both steps before responding to the user.`

// SwapInstruction returns the corrective instruction injected after an
// update_event failure, naming the event the model must replace.
func SwapInstruction(originalID string) string {
	return fmt.Sprintf(swapInstructionTemplate, originalID)
}

// SwapCreateFailed is the consolidated reply when the swap's create step
// also fails. Nothing on the calendar has changed at that point.
const SwapCreateFailed = "I couldn't update that event: the direct update failed and creating a replacement also failed, so nothing was changed. Please try again in a moment."

// SwapDeleteFailed is the reply when the replacement was created but the
// original could not be removed.
const SwapDeleteFailed = "I rescheduled that event, but the swap could not complete cleanly: deleting the original failed, so a duplicate may remain on your calendar. Please check and remove it manually if needed."
