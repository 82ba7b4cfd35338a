package api

import "github.com/starford/ideacards/internal/idea"

// Idea is the response type for every single-idea endpoint.
type Idea = idea.Idea

// CreateIdeaRequest is the request body for creating an idea.
type CreateIdeaRequest = idea.CreatePayload

// UpdateIdeaRequest is the request body for replacing an idea's content.
type UpdateIdeaRequest = idea.Payload
