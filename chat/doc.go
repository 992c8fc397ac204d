// Package chat captures Twitch chat over IRC.
//
// TwitchSource implements livechat.Source: it joins a channel, emits every
// PRIVMSG with its server timestamp, and ends when the context is cancelled
// or, when a Helix client is configured, once the channel goes offline after
// having been live. WaitForLive blocks until a channel starts streaming so a
// capture can be armed ahead of a broadcast.
//
// Credentials: without TWITCH_BOT_USERNAME/TWITCH_OAUTH_TOKEN the client
// connects anonymously (read-only), which is all capture needs. Live status
// checks need TWITCH_CLIENT_ID/TWITCH_CLIENT_SECRET for an app token.
package chat
