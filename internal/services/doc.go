// Package services hosts the clients for external collaborators (text
// generation, speech-to-text) and the shared error taxonomy every pipeline
// stage tags its failures with.
package services
