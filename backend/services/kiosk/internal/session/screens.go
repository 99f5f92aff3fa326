package session

import (
	"vendkiosk/backend/services/kiosk/internal/effects"
	"vendkiosk/backend/services/kiosk/internal/models"
)

func waitingScreen() effects.Screen {
	return effects.Screen{
		Kind:    effects.ScreenWaitingForCard,
		Title:   "Insert your card",
		Message: "Waiting for card...",
	}
}

func enterPINScreen() effects.Screen {
	return effects.Screen{
		Kind:    effects.ScreenEnterPIN,
		Title:   "Card detected",
		Message: "Enter your 4 digit PIN",
	}
}

func verifyingScreen() effects.Screen {
	return effects.Screen{
		Kind:    effects.ScreenVerifyingPIN,
		Title:   "Checking PIN",
		Message: "Please wait...",
	}
}

func pinErrorScreen(reason string) effects.Screen {
	return effects.Screen{
		Kind:    effects.ScreenPINError,
		Title:   "PIN refused",
		Message: "Enter your 4 digit PIN",
		Error:   reason,
	}
}

func welcomeScreen(balance string) effects.Screen {
	return effects.Screen{
		Kind:    effects.ScreenWelcome,
		Title:   "Welcome",
		Message: "Choose a drink",
		Balance: balance,
	}
}

func insufficientScreen(item models.ItemRef, balanceMinorUnits int) effects.Screen {
	it := item
	return effects.Screen{
		Kind:      effects.ScreenInsufficientFunds,
		Title:     "Insufficient balance",
		Message:   "Choose another drink or remove your card",
		Balance:   models.FormatMinorUnits(balanceMinorUnits),
		Item:      &it,
		Price:     models.FormatMinorUnits(item.PriceMinorUnits),
		Shortfall: models.FormatMinorUnits(item.PriceMinorUnits - balanceMinorUnits),
	}
}

func confirmingScreen(item models.ItemRef) effects.Screen {
	it := item
	return effects.Screen{
		Kind:  effects.ScreenConfirming,
		Title: item.DisplayName,
		Price: models.FormatMinorUnits(item.PriceMinorUnits),
		Item:  &it,
	}
}

func preparingScreen(item models.ItemRef) effects.Screen {
	it := item
	return effects.Screen{
		Kind:    effects.ScreenPreparing,
		Title:   "Preparing " + item.DisplayName,
		Message: "Please wait...",
		Item:    &it,
	}
}

func servedScreen(item models.ItemRef, name, balance string) effects.Screen {
	it := item
	if name == "" {
		name = item.DisplayName
	}
	return effects.Screen{
		Kind:    effects.ScreenServed,
		Title:   name + " served",
		Message: "Enjoy!",
		Balance: balance,
		Item:    &it,
	}
}

func rejectedScreen(reason, balance string) effects.Screen {
	return effects.Screen{
		Kind:    effects.ScreenRejected,
		Title:   "Purchase failed",
		Message: "Choose a drink",
		Balance: balance,
		Error:   reason,
	}
}

func cardRemovedScreen() effects.Screen {
	return effects.Screen{
		Kind:    effects.ScreenCardRemoved,
		Title:   "Card removed",
		Message: "Session ended",
	}
}
