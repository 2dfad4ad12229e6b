package usercontext

// KeyUserContext is the Locals key holding the authenticated UserContext.
const KeyUserContext = "USER_CONTEXT"
