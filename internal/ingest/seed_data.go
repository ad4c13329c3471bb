package ingest

import "github.com/rcliao/munger/internal/model"

type seedQuote struct {
	content string
	title   string
	tags    []string
}

var seedQuotes = []seedQuote{
	// thinking
	{"Invert, always invert.", "On problem solving", []string{"thinking", "mental_models"}},
	{"I never allow myself to have an opinion on anything that I don't know the other side's argument better than they do.", "On intellectual honesty", []string{"thinking", "humility"}},
	{"The best thing a human being can do is to help another human being know more.", "On teaching", []string{"wisdom", "relationships"}},
	{"Take a simple idea and take it seriously.", "On focus", []string{"wisdom", "simplicity"}},
	{"Spend each day trying to be a little wiser than you were when you woke up.", "On continuous learning", []string{"learning", "self-improvement"}},
	{"In my whole life, I have known no wise people who didn't read all the time - none, zero.", "On reading", []string{"learning", "wisdom"}},
	{"You don't have to be brilliant, only a little bit wiser than the other guys, on average, for a long time.", "On compounding wisdom", []string{"wisdom", "patience"}},

	// investing
	{"The big money is not in the buying and selling, but in the waiting.", "On patience in investing", []string{"investing", "patience"}},
	{"All intelligent investing is value investing.", "On value investing", []string{"investing"}},
	{"A great business at a fair price is superior to a fair business at a great price.", "On quality", []string{"investing", "business"}},
	{"The first rule of compounding: Never interrupt it unnecessarily.", "On compounding", []string{"investing", "patience"}},
	{"We have three baskets for investing: in, out, and too tough to understand.", "On circle of competence", []string{"investing", "mental_models"}},
	{"Mimicking the herd invites regression to the mean.", "On independent thinking", []string{"investing", "psychology"}},

	// psychology
	{"Show me the incentive and I will show you the outcome.", "On incentives", []string{"psychology", "mental_models"}},
	{"The world is not driven by greed; it's driven by envy.", "On envy", []string{"psychology"}},
	{"I think I've been in the top 5% of my age cohort all my life in understanding the power of incentives, and all my life I've underestimated it.", "On incentives power", []string{"psychology", "mental_models"}},
	{"Envy is a really stupid sin because it's the only one you could never possibly have any fun at.", "On envy", []string{"psychology", "wisdom"}},
	{"The iron rule of nature is: you get what you reward for. If you want ants to come, you put sugar on the floor.", "On incentives", []string{"psychology"}},

	// character
	{"Remember that reputation and integrity are your most valuable assets - and can be lost in a heartbeat.", "On integrity", []string{"character", "wisdom"}},
	{"You want to deliver to the world what you would buy if you were on the other end.", "On ethics", []string{"character", "business"}},
	{"Trust is one of the best of all simplifiers, like a lubrication mechanism in an old Swiss clock.", "On trust", []string{"character", "relationships"}},
	{"The safest way to get what you want is to deserve what you want.", "On deserving", []string{"character", "success"}},

	// mistakes and learning
	{"I like people admitting they were complete stupid horses' asses. I know I'll perform better if I rub my nose in my mistakes.", "On learning from mistakes", []string{"learning", "humility"}},
	{"Knowing what you don't know is more useful than being brilliant.", "On intellectual humility", []string{"wisdom", "mental_models"}},
	{"There is no better teacher than history in determining the future.", "On history", []string{"learning", "wisdom"}},
	{"I believe in the discipline of mastering the best that other people have ever figured out. I don't believe in just sitting down and trying to dream it all up yourself.", "On learning from others", []string{"learning"}},

	// life and relationships
	{"The best thing to do with a spouse is to find someone who has low expectations.", "On marriage", []string{"relationships", "wisdom"}},
	{"I don't think you can get to be a really good investor over a broad range without doing a massive amount of reading.", "On reading", []string{"learning", "investing"}},
	{"Three rules for a career: Don't sell anything you wouldn't buy yourself. Don't work for anyone you don't respect and admire. Work only with people you enjoy.", "On career", []string{"career", "character"}},
	{"Develop into a lifelong self-learner through voracious reading; cultivate curiosity and strive to become a little wiser every day.", "On self-development", []string{"learning", "wisdom"}},

	// business
	{"There are two types of businesses: The first earns 12% and you can take it out at the end of the year. The second earns 12%, but all the excess cash must be reinvested. The first is a winner, the second is a loser.", "On capital allocation", []string{"business", "investing"}},
	{"In business we often find that the winning system goes almost ridiculously far in maximizing and or minimizing one or a few variables.", "On focus", []string{"business", "strategy"}},
	{"Acknowledging what you don't know is the dawning of wisdom.", "On self-awareness", []string{"wisdom", "mental_models"}},

	// multidisciplinary thinking
	{"You must know the big ideas in the big disciplines and use them routinely - all of them, not just a few.", "On mental models", []string{"mental_models", "learning"}},
	{"To the man with only a hammer, every problem looks like a nail.", "On mental models", []string{"mental_models", "thinking"}},
	{"I constantly see people rise in life who are not the smartest, sometimes not even the most diligent, but they are learning machines.", "On continuous learning", []string{"learning", "success"}},
}

type seedModel struct {
	name    string
	content string
	tags    []string
	related []string
}

var seedModels = []seedModel{
	{
		"Inversion",
		"Instead of asking how to succeed, ask how to fail and avoid those things. " +
			"All I want to know is where I'm going to die, so I'll never go there. " +
			"It's not enough to think about problems forward. You must also think about them backward. " +
			"Many hard problems are best solved when they are addressed backward.",
		[]string{"thinking", "problem_solving"},
		[]string{"First Principles", "Margin of Safety"},
	},
	{
		"Circle of Competence",
		"Know what you know and what you don't know. The most important thing is to know where the perimeter is. " +
			"It's not a competency if you don't know the edge of it. If you play games where other people have aptitudes and you don't, " +
			"you're going to lose. You have to figure out where you've got an edge. And you've got to play within your circle of competence.",
		[]string{"investing", "self_awareness"},
		[]string{"Incentives", "Opportunity Cost"},
	},
	{
		"Incentives",
		"Never, ever, think about something else when you should be thinking about the power of incentives. " +
			"The most important thing in any economy is the incentive structure. People respond to incentives. " +
			"Never think about what people should do; think about what they will do given their incentives. " +
			"If you want to predict behavior, you need to understand the incentive structure first.",
		[]string{"psychology", "economics"},
		[]string{"Social Proof", "Authority"},
	},
	{
		"Margin of Safety",
		"The whole secret of investment is to find places where it's safe and wise to non-diversify. " +
			"You need a margin of safety in case things go wrong. Engineering has backup systems. " +
			"You should too. Build redundancy into your plans. Never bet everything on one outcome. " +
			"Proper preparation for improbable events is essential.",
		[]string{"investing", "risk_management"},
		[]string{"Inversion", "Redundancy"},
	},
	{
		"Second-Order Thinking",
		"Almost everyone focuses on first-order effects and ignores second and third-order effects. " +
			"You have to think about the effects of the effects. What happens next? And what happens after that? " +
			"The world is not static. Your actions have ripple effects. Think through the consequences of consequences.",
		[]string{"thinking", "strategy"},
		[]string{"Inversion", "Feedback Loops"},
	},
	{
		"Opportunity Cost",
		"Intelligent people make decisions based on opportunity costs. Every dollar spent or hour used has an alternative. " +
			"What are you NOT doing when you choose to do this? The cost of a thing is what you give up to get it. " +
			"Always ask: What's the next best alternative?",
		[]string{"economics", "decision_making"},
		[]string{"Comparative Advantage", "Trade-offs"},
	},
}

type seedPrinciple struct {
	name    string
	content string
	tags    []string
}

var seedPrinciples = []seedPrinciple{
	{
		"Continuous Learning",
		"Go to bed smarter than when you woke up. Develop into a lifelong self-learner through voracious reading. " +
			"The game of life is the game of everlasting learning. At least it is if you want to win. " +
			"I constantly see people rise in life who are not the smartest but they are learning machines. " +
			"They go to bed a little wiser each day.",
		[]string{"learning", "self_improvement"},
	},
	{
		"Intellectual Humility",
		"Acknowledging what you don't know is the dawning of wisdom. Knowing what you don't know is more useful than being brilliant. " +
			"There's no shame in not knowing. The shame is in pretending to know. " +
			"Develop the habit of ruthlessly examining your own thinking for errors.",
		[]string{"wisdom", "thinking"},
	},
	{
		"Patience and Discipline",
		"The big money is in the waiting. You need patience, discipline, and agility to seize opportunities when they're presented. " +
			"Occasionally, do nothing. Wait for the fat pitch. Don't swing at every ball. " +
			"Most gains come from waiting for a few obvious opportunities.",
		[]string{"investing", "character"},
	},
	{
		"Avoiding Stupidity",
		"It is remarkable how much long-term advantage people like us have gotten by trying to be consistently not stupid, " +
			"instead of trying to be very intelligent. Avoid stupidity is an easier goal than being brilliant. " +
			"If you just avoid the major mistakes, you'll do well.",
		[]string{"wisdom", "risk_management"},
	},
	{
		"Deserving What You Want",
		"The safest way to get what you want is to deserve what you want. Deliver to the world what you would buy if you were on the other end. " +
			"Be reliable, be ethical, be hardworking. Success follows those who deserve it through their conduct.",
		[]string{"character", "success"},
	},
	{
		"Reading and Thinking",
		"In my whole life, I have known no wise people who didn't read all the time. " +
			"You'd be amazed at how much Warren reads and how much I read. My children laugh at me. " +
			"They think I'm a book with a couple of legs sticking out.",
		[]string{"learning", "habits"},
	},
}

type seedSpeech struct {
	name    string
	content string
	source  string
	year    int
	tags    []string
}

var seedSpeeches = []seedSpeech{
	{
		"Psychology of Human Misjudgment",
		"I've long been intrigued by standard thinking errors. I started cataloguing psychological tendencies " +
			"that cause problems in cognition. There are about 25 standard causes of human misjudgment. " +
			"Understanding these tendencies is essential for good decision-making. They include: " +
			"reward and punishment super-response, liking/loving tendency, disliking/hating tendency, " +
			"doubt-avoidance tendency, inconsistency-avoidance tendency, and many more.",
		"Psychology of Human Misjudgment speech, 1995", 1995,
		[]string{"psychology", "mental_models"},
	},
	{
		"Elementary Worldly Wisdom",
		"What is elementary worldly wisdom? It's a latticework of mental models. " +
			"You've got to hang your experience on a latticework of models in your head. " +
			"The first rule is that you've got to have multiple models - because if you just have one or two, " +
			"the nature of human psychology is such that you'll torture reality so that it fits your models. " +
			"You must have the models across many disciplines.",
		"Elementary Worldly Wisdom speech, USC Business School, 1994", 1994,
		[]string{"mental_models", "learning"},
	},
	{
		"The Art of Stock Picking",
		"The model I like - to sort of simplify the notion of what goes on in a market for common stocks - " +
			"is the pari-mutuel system at the racetrack. If you stop to think about it, a pari-mutuel system is a market. " +
			"Everybody goes there and bets, and the odds change based on what's bet. That's what happens in the stock market.",
		"The Art of Stock Picking speech, 1994", 1994,
		[]string{"investing", "mental_models"},
	},
	{
		"Academic Economics",
		"I have a habit of citing examples like this but I think they're important. " +
			"Academic economics has serious problems. Essentially, I find it's just plain wrong. " +
			"They have a paradigm with utility maximizing rationality, but it's a gross oversimplification " +
			"of reality and often leads to wrong conclusions.",
		"Academic Economics speech, UC Santa Barbara, 2003", 2003,
		[]string{"economics", "thinking"},
	},
}

// SeedRecords returns the built-in wisdom: quotes, then mental models,
// principles and speech excerpts.
func SeedRecords() []model.WisdomRecord {
	var recs []model.WisdomRecord
	for _, q := range seedQuotes {
		recs = append(recs, model.WisdomRecord{
			Category:      model.CategoryQuote,
			Title:         q.title,
			Content:       q.content,
			Source:        "Charlie Munger - Various speeches and interviews",
			Tags:          q.tags,
			RelatedModels: []string{},
		})
	}
	for _, m := range seedModels {
		recs = append(recs, model.WisdomRecord{
			Category:      model.CategoryMentalModel,
			Title:         "Mental Model: " + m.name,
			Content:       m.content,
			Source:        "Charlie Munger - Mental Models Framework",
			Tags:          m.tags,
			RelatedModels: m.related,
		})
	}
	for _, p := range seedPrinciples {
		recs = append(recs, model.WisdomRecord{
			Category:      model.CategoryPrinciple,
			Title:         "Principle: " + p.name,
			Content:       p.content,
			Source:        "Charlie Munger - Life Principles",
			Tags:          p.tags,
			RelatedModels: []string{},
		})
	}
	for _, s := range seedSpeeches {
		year := s.year
		recs = append(recs, model.WisdomRecord{
			Category:      model.CategorySpeechExcerpt,
			Title:         "Speech: " + s.name,
			Content:       s.content,
			Source:        s.source,
			Tags:          s.tags,
			RelatedModels: []string{},
			Year:          &year,
		})
	}
	return recs
}
