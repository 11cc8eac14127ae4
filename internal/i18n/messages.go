package i18n

var catalog = map[Language]map[string]string{
	Portuguese: {
		"bad_request":           "Requisição inválida.",
		"validation_failed":     "Verifique os campos destacados.",
		"unauthorized":          "Faça login para continuar.",
		"forbidden":             "Você não tem permissão para esta ação.",
		"guest_not_approved":    "Seu acesso ainda não foi aprovado pelos anfitriões.",
		"gift_not_found":        "Presente não encontrado.",
		"guest_not_found":       "Convidado não encontrado.",
		"invite_not_found":      "Convite não encontrado.",
		"not_found":             "Não encontrado.",
		"gift_at_capacity":      "Este presente já foi escolhido.",
		"already_reserved":      "Você já escolheu este presente.",
		"not_reserved":          "Você não escolheu este presente.",
		"gift_claimed":          "Não é possível remover um presente já escolhido.",
		"capacity_below_claims": "A capacidade não pode ficar abaixo do número de convidados que já escolheram.",
		"guest_limit_reached":   "Você atingiu o limite de presentes por convidado.",
		"invite_used":           "Este convite já foi usado por outra pessoa.",
		"invite_not_redeemed":   "Use o convite antes de confirmar presença.",
		"outcome_unknown":       "Não foi possível confirmar a operação. Atualize a lista e tente novamente.",
		"rate_limited":          "Muitas tentativas. Aguarde um instante.",
		"unavailable":           "Serviço temporariamente indisponível.",
		"internal":              "Erro interno. Tente novamente.",

		"email.footer":                "Mensagem automática da lista de presentes",
		"email.confirm.subject":       "%s confirmou presença!",
		"email.confirm.heading":       "Nova confirmação de presença",
		"email.gift_reserved.subject": "%s escolheu um presente!",
		"email.gift_reserved.heading": "Novo presente escolhido",
		"email.gift_released.subject": "%s desistiu de um presente",
		"email.gift_released.heading": "Presente liberado",
		"email.invite.subject":        "Novo convite gerado",
		"email.invite.heading":        "Novo convite gerado",
		"email.invite.share":          "Compartilhe este link com o convidado.",
		"email.label.name":            "Nome",
		"email.label.email":           "Email",
		"email.label.gift":            "Presente",
		"email.label.address":         "Endereço do evento",
		"email.label.token":           "Token",
		"email.label.link":            "Link",
		"email.view_gift":             "Ver presente",

		"csv.gift":      "Presente",
		"csv.link":      "Link",
		"csv.capacity":  "Capacidade",
		"csv.claimed":   "Escolhido",
		"csv.guest":     "Convidado",
		"csv.email":     "Email",
		"csv.phone":     "Telefone",
		"csv.yes":       "Sim",
		"csv.no":        "Não",
		"csv.file_name": "lista-de-presentes.csv",
	},
	English: {
		"bad_request":           "Invalid request.",
		"validation_failed":     "Check the highlighted fields.",
		"unauthorized":          "Sign in to continue.",
		"forbidden":             "You are not allowed to do that.",
		"guest_not_approved":    "Your access has not been approved by the hosts yet.",
		"gift_not_found":        "Gift not found.",
		"guest_not_found":       "Guest not found.",
		"invite_not_found":      "Invite not found.",
		"not_found":             "Not found.",
		"gift_at_capacity":      "This gift has already been taken.",
		"already_reserved":      "You already reserved this gift.",
		"not_reserved":          "You have not reserved this gift.",
		"gift_claimed":          "A gift that has been reserved cannot be removed.",
		"capacity_below_claims": "Capacity cannot go below the number of guests already holding the gift.",
		"guest_limit_reached":   "You reached the per-guest gift limit.",
		"invite_used":           "This invite was already used by someone else.",
		"invite_not_redeemed":   "Use the invite before confirming attendance.",
		"outcome_unknown":       "We could not confirm the operation. Refresh the list and try again.",
		"rate_limited":          "Too many attempts. Please wait a moment.",
		"unavailable":           "Service temporarily unavailable.",
		"internal":              "Internal error. Please try again.",

		"email.footer":                "Automatic message from the gift registry",
		"email.confirm.subject":       "%s confirmed attendance!",
		"email.confirm.heading":       "New attendance confirmation",
		"email.gift_reserved.subject": "%s picked a gift!",
		"email.gift_reserved.heading": "Gift reserved",
		"email.gift_released.subject": "%s released a gift",
		"email.gift_released.heading": "Gift released",
		"email.invite.subject":        "New invite generated",
		"email.invite.heading":        "New invite generated",
		"email.invite.share":          "Share this link with the guest.",
		"email.label.name":            "Name",
		"email.label.email":           "Email",
		"email.label.gift":            "Gift",
		"email.label.address":         "Event address",
		"email.label.token":           "Token",
		"email.label.link":            "Link",
		"email.view_gift":             "View gift",

		"csv.gift":      "Gift",
		"csv.link":      "Link",
		"csv.capacity":  "Capacity",
		"csv.claimed":   "Reserved",
		"csv.guest":     "Guest",
		"csv.email":     "Email",
		"csv.phone":     "Phone",
		"csv.yes":       "Yes",
		"csv.no":        "No",
		"csv.file_name": "gift-list.csv",
	},
}
