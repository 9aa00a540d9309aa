package response

// Shared detail messages. Handlers reuse these so the same failure reads
// identically everywhere in the API.
const (
	DetailInvalidID          = "The identifier is not valid."
	DetailInvalidPayload     = "The request payload is not valid."
	DetailValidation         = "Validation failed. Please check your input."
	DetailUnauthorized       = "Authentication required."
	DetailForbidden          = "You do not have permission to access this resource."
	DetailInternal           = "An internal server error occurred."
	DetailNoQuestion         = "No question is available."
	DetailQuestionNotFound   = "The question could not be found."
	DetailBundleNotFound     = "The quiz bundle could not be found."
	DetailTopicNotFound      = "The topic could not be found."
	DetailTopicExists        = "A topic with this name already exists."
	DetailInvalidCredentials = "Email or password is incorrect."
	DetailEmailTaken         = "An account with this email already exists."
	DetailRateLimited        = "Too many requests. Please try again later."
	DetailProgressReset      = "Bundle progress has been reset."
)
