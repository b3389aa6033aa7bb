// Package language normalizes the language codes attached to uploaded videos.
//
// YouTube's defaultLanguage and defaultAudioLanguage fields take ISO 639-1
// codes, optionally with a region ("en-GB"). Containers and users tend to
// supply ISO 639-2 codes ("eng", "ger") or plain words ("english"), so
// Normalize maps all of those onto the form the API accepts.
package language
