package meal

import "errors"

// Domain errors for meal operations.

var (
	ErrMealNotFound            = errors.New("meal not found")
	ErrInvalidStatusTransition = errors.New("invalid meal status transition")
	ErrNotReady                = errors.New("meal is not ready for editing")
	ErrAlreadyInactive         = errors.New("meal is already inactive")
	ErrNoFoodDetected          = errors.New("no_food_detected")
	ErrContentBlocked          = errors.New("content_blocked")
	ErrAnalysisTimeout         = errors.New("analysis timeout exceeded")
	ErrNotOwner                = errors.New("user does not own this meal")
	ErrFoodItemNotFound        = errors.New("food item not found on meal")
	ErrImageTooLarge           = errors.New("image exceeds maximum size of 10 MiB")
	ErrUnsupportedContentType  = errors.New("unsupported image content type")
)
