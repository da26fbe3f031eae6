package prompts

import "fmt"

// Welcome is sent in response to /start.
const Welcome = "🤖 *Hello! I am NovaCal AI.*\n" +
	"I am your highly capable personal calendar assistant. To ensure smooth scheduling, please read my operational guidelines below:\n\n" +
	"🧠 *1. Conversational Memory (Stateful)*\n" +
	"I am equipped with short-term memory! We can converse naturally step-by-step. " +
	"_(e.g., You can say 'Schedule a meeting tomorrow', and if I ask 'What time?', you can just reply 'at 4 PM'.)_\n\n" +
	"⏱️ *2. Provide Details & Follow-ups*\n" +
	"While I can ask follow-up questions if details are missing, providing complete info upfront is always faster. If you don't specify an end time, " +
	"I might set a *1-hour default*. _(Don't worry, we can always update it!)_\n\n" +
	"📋 *3. Operation Guide (CRUD)*\n" +
	"• ➕ *CREATE:* Tell me the _Event Title, When (Date or Day), Start Time, and End Time_.\n" +
	"  _(e.g., 'Book a Team Sync tomorrow from 2 PM to 3:30 PM')_\n" +
	"• 📖 *READ:* Tell me the specific _Date or Timeframe_ you want to check.\n" +
	"  _(e.g., 'What is my schedule for next Monday?')_\n" +
	"• ✏️ *UPDATE:* Tell me the _Exact Event Name_ and the _New Details_.\n" +
	"  _(e.g., 'Change my Dentist appointment tomorrow to 10 AM')_\n" +
	"• ❌ *DELETE:* Tell me the _Exact Event Name_ you want to remove.\n" +
	"  _(e.g., 'Cancel my Team Sync meeting')_\n\n" +
	"Send me a command whenever you're ready! 🚀"

// infoTemplate backs the /info command. The format verb is the running
// binary's version.
const infoTemplate = "🤖 *ABOUT NOVACAL AI*\n" +
	"━━━━━━━━━━━━━━━━━━━━━\n" +
	"NovaCal AI is a streamlined Virtual Assistant built for seamless Google Calendar management.\n\n" +
	"🛠️ *TECHNICAL SPECIFICATIONS:*\n" +
	"• *Version:* %s\n" +
	"• *AI Model:* Google Gemini 2.5 Flash\n" +
	"• *Integrations:* Google Calendar API v3 (Custom Search & CRUD Tools)\n" +
	"• *Architecture:* Stateful (SQL-Backed Conversational Memory)\n" +
	"• *Security:* Private Access Control & Activity Logging\n\n" +
	"⚡ *THE STATEFUL ADVANTAGE:*\n" +
	"Powered by a robust SQL database, NovaCal AI securely retains session context for natural, multi-turn conversations. This allows for dynamic follow-ups and complex scheduling adjustments without the need to repeat prior instructions.\n\n" +
	"Type /howtouse to read the operational guide!"

// Info returns the /info reply for the given build version.
func Info(version string) string {
	return fmt.Sprintf(infoTemplate, version)
}

// HowToUse is sent in response to /howtouse.
const HowToUse = "📖 *NOVACAL AI - USER GUIDE*\n" +
	"━━━━━━━━━━━━━━━━━━━━━\n" +
	"Welcome to your personal calendar command center. Please read the core rules below to ensure flawless execution.\n\n" +
	"🧠 *1. CONVERSATIONAL MEMORY*\n" +
	"I remember our ongoing conversation! You can give me instructions piece by piece or all at once.\n" +
	"✅ _Multi-turn Example:_\n" +
	"You: 'Schedule a meeting for tomorrow.'\n" +
	"Me: 'Sure, what time and what is the title?'\n" +
	"You: 'Call it Team Sync, from 2 PM to 3 PM.'\n\n" +
	"⏱️ *2. PARAMETER SAFETY & FOLLOW-UPS*\n" +
	"Always try to define the duration! If you don't specify an end time, I will either *ask you a follow-up question* to confirm, or automatically assume a *1-hour duration* by default. _(Don't worry, we can always update it!)_\n\n" +
	"⚙️ *3. COMMAND CHEAT SHEET (CRUD)*\n" +
	"To perform actions, just talk to me naturally using these formats:\n\n" +
	"➕ *CREATE (Add an event)*\n" +
	"• _Required:_ Title, When (Date/Day), Start Time, End Time.\n" +
	"• _Prompt:_ 'Book a Team Sync tomorrow from 2:00 PM to 3:30 PM.'\n\n" +
	"📖 *READ (Check your schedule)*\n" +
	"• _Required:_ Date or Timeframe.\n" +
	"• _Prompt:_ 'What is my schedule for next Monday?' or 'Do I have any meetings today?'\n\n" +
	"✏️ *UPDATE (Edit an event)*\n" +
	"• _Required:_ Exact Event Name, Date, and the New Details.\n" +
	"• _Prompt:_ 'Change my Dentist appointment tomorrow to start at 10 AM instead.'\n\n" +
	"❌ *DELETE (Remove an event)*\n" +
	"• _Required:_ Exact Event Name and Date.\n" +
	"• _Prompt:_ 'Cancel my Team Sync meeting scheduled for tomorrow.'\n\n" +
	"Ready? Send me your first command! 🚀"

// AccessDenied is the static notice sent to an unauthorized sender.
const AccessDenied = "🚨 *Access Denied!* Unauthorized user detected. I am exclusively configured to assist my designated developer."

// intrusionAlertTemplate backs the developer-chat security alert. The
// format verbs are the intruder's display name, their sender ID, and the
// text they typed.
const intrusionAlertTemplate = "⚠️ *SECURITY ALERT* ⚠️\n\n" +
	"Someone tried to access your Calendar Bot!\n" +
	"👤 *Name:* %s\n" +
	"🆔 *User ID:* `%s`\n" +
	"💬 *They typed:* _%s_"

// IntrusionAlert formats the security alert pushed to the developer chat
// when an unauthorized sender is rejected.
func IntrusionAlert(name, senderID, text string) string {
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf(intrusionAlertTemplate, name, senderID, text)
}

// systemAlertTemplate backs the developer-chat emergency notification
// sent when a turn fails with an unhandled error. The format verb is the
// error text.
const systemAlertTemplate = "🚨 *SYSTEM ALERT: BOT ENCOUNTERED AN ERROR!* 🚨\n\n" +
	"*Error Details:*\n`%v`"

// SystemAlert formats the emergency notification pushed to the developer
// chat when a turn fails.
func SystemAlert(err error) string {
	return fmt.Sprintf(systemAlertTemplate, err)
}

// Error replies, categorized by failure class.
const (
	ErrQuota    = "⚠️ *API Limit Reached:* My AI engine is receiving too many requests right now or has reached its daily capacity. Please try again later or tomorrow!"
	ErrAuth     = "🛑 *Configuration Error:* My API key seems to be invalid or expired. Please check the system environment settings."
	ErrCalendar = "📅 *Calendar Sync Error:* I am having trouble accessing your Google Calendar. The authorization token might be expired or the calendar ID is incorrect."
	ErrGeneric  = "⚠️ *System Error:* My AI engine is currently unreachable or encountering an unexpected issue. Please try again in a moment!"
)
